package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/radio"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type radioApi struct {
	svc      *radio.Service
	logger   core.Logger
	upgrader websocket.Upgrader
}

type positionRequest struct {
	Position float64 `json:"position"`
}

func registerRadioAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *radio.Service, logger core.Logger, origins []string) {
	api := radioApi{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || core.StringInSlice(origin, origins) || core.StringInSlice("*", origins)
			},
		},
	}

	rg := g.Group("/radio", jwt)
	rg.GET("/state", api.state)
	rg.GET("/sync", api.sync)
	rg.GET("/tracks", api.tracks)
	rg.GET("/ws", api.listen)

	m := managerMiddleware()
	rg.POST("/toggle", api.toggle, m)
	rg.POST("/next", api.next, m)
	rg.POST("/seek", api.seek, m)
	rg.POST("/tracks", api.addTrack, m)
	rg.DELETE("/tracks/:id", api.destroyTrack, m)
}

func (api *radioApi) state(ctx echo.Context) error {
	s, err := api.svc.State(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting radio state")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *radioApi) sync(ctx echo.Context) error {
	pos, err := strconv.ParseFloat(ctx.QueryParam("position"), 64)
	if err != nil {
		pos = 0
	}
	res, err := api.svc.Sync(ctx.Request().Context(), pos)
	if err != nil {
		return errors.Wrap(err, "syncing radio")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *radioApi) toggle(ctx echo.Context) error {
	var data positionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to positionRequest")
	}
	s, err := api.svc.Toggle(ctx.Request().Context(), data.Position)
	if err != nil {
		return errors.Wrap(err, "toggling playback")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *radioApi) next(ctx echo.Context) error {
	s, err := api.svc.Next(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "skipping track")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *radioApi) seek(ctx echo.Context) error {
	var data positionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to positionRequest")
	}
	s, err := api.svc.Seek(ctx.Request().Context(), data.Position)
	if err != nil {
		return errors.Wrap(err, "seeking")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *radioApi) tracks(ctx echo.Context) error {
	ts, err := api.svc.Tracks(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing tracks")
	}
	if ts == nil {
		ts = []radio.Track{}
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *radioApi) addTrack(ctx echo.Context) error {
	var data radio.NewTrack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrack")
	}
	t, err := api.svc.AddTrack(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding track")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *radioApi) destroyTrack(ctx echo.Context) error {
	if err := api.svc.DeleteTrack(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting track")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// listen streams every state change to the client over a websocket, starting with the current state.
func (api *radioApi) listen(ctx echo.Context) error {
	initial, err := api.svc.State(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting radio state")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		api.logger.Warn("radio websocket upgrade failed", err)
		return nil
	}
	defer conn.Close()

	states, unsubscribe := api.svc.Hub().Subscribe()
	defer unsubscribe()

	// reader: handles pongs and notices when the client goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(s radio.State) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(s)
	}
	if !initial.UpdatedAt.IsZero() {
		if err = write(initial); err != nil {
			return nil
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case s, ok := <-states:
			if !ok {
				// dropped for being too slow
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"), time.Now().Add(wsWriteWait))
				return nil
			}
			if err = write(s); err != nil {
				return nil
			}
		case <-ticker.C:
			if err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return nil
			}
		}
	}
}
