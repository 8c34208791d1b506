// Package inmemdb implements every repository in memory. It backs the tests and the `-inmem` dev mode.
package inmemdb

import (
	"sync"

	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/finance"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
)

type (
	DB struct {
		member       *memberTable
		audit        *auditTable
		attendance   *attendanceTable
		excuse       *excuseTable
		notification *notificationTable
		finance      *financeTable
		grading      *gradingTable
		sightreading *scoreTable
		radio        *radioTable
		liturgy      *liturgyTable
		library      *libraryTable
	}

	memberTable struct {
		sync.RWMutex
		table     map[string]*member.Member
		execBoard map[string]*member.ExecBoardMember // {member_id/academic_year: ...}
	}

	auditTable struct {
		sync.RWMutex
		table []audit.Entry
	}

	attendanceTable struct {
		sync.RWMutex
		events  map[string]*attendance.Event
		records map[string]*attendance.Record // {event_id/member_id: ...}
	}

	excuseTable struct {
		sync.RWMutex
		table map[string]*excuse.Request
	}

	notificationTable struct {
		sync.RWMutex
		table     []*notification.Notification
		campaigns []notification.Campaign
	}

	financeTable struct {
		sync.RWMutex
		dues     map[string]*finance.DuesRecord
		ledger   []finance.LedgerEntry
		budgets  map[string]*finance.Budget
		expenses []finance.Expense
	}

	gradingTable struct {
		sync.RWMutex
		assignments map[string]*grading.Assignment
		submissions map[string]*grading.Submission
		grades      map[string]*grading.Grade // {submission_id: ...}
	}

	scoreTable struct {
		sync.RWMutex
		table map[string]sightreading.Score
	}

	radioTable struct {
		sync.RWMutex
		tracks map[string]*radio.Track
		state  *radio.State
	}

	liturgyTable struct {
		sync.RWMutex
		table map[string]liturgy.Readings
	}

	libraryTable struct {
		sync.RWMutex
		table map[string]*library.SheetMusic
	}
)

func Open() *DB {
	return &DB{
		member:       &memberTable{table: make(map[string]*member.Member), execBoard: make(map[string]*member.ExecBoardMember)},
		audit:        &auditTable{},
		attendance:   &attendanceTable{events: make(map[string]*attendance.Event), records: make(map[string]*attendance.Record)},
		excuse:       &excuseTable{table: make(map[string]*excuse.Request)},
		notification: &notificationTable{},
		finance:      &financeTable{dues: make(map[string]*finance.DuesRecord), budgets: make(map[string]*finance.Budget)},
		grading: &gradingTable{
			assignments: make(map[string]*grading.Assignment),
			submissions: make(map[string]*grading.Submission),
			grades:      make(map[string]*grading.Grade),
		},
		sightreading: &scoreTable{table: make(map[string]sightreading.Score)},
		radio:        &radioTable{tracks: make(map[string]*radio.Track)},
		liturgy:      &liturgyTable{table: make(map[string]liturgy.Readings)},
		library:      &libraryTable{table: make(map[string]*library.SheetMusic)},
	}
}
