package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/session"
)

func testSnapshot() *session.Snapshot {
	zero, two := 0, 2
	return &session.Snapshot{
		SessionID:  1,
		Executable: "EXCEL",
		TakenAt:    time.Unix(0, 0),
		Instances: []session.Instance{
			{PID: 20, Window: 0x20, Rank: &zero, VersionName: "Excel 2013", TopMost: true, Primary: true},
			{PID: 10, Window: 0x10, Rank: &two, VersionName: "Excel 2016"},
		},
		Unreachable: []platform.ProcessID{30},
		PrimaryPID:  20,
		TopMostPID:  20,
	}
}

func newTestModel(activated *[]platform.ProcessID) model {
	return newModel(Options{
		Query: func() (*session.Snapshot, error) { return testSnapshot(), nil },
		Activate: func(pid platform.ProcessID) error {
			if activated != nil {
				*activated = append(*activated, pid)
			}
			return nil
		},
		Interval: time.Second,
	})
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return nm, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_DefaultInterval(t *testing.T) {
	m := newModel(Options{})
	if m.opts.Interval != 2*time.Second {
		t.Fatalf("Interval = %v, want 2s", m.opts.Interval)
	}
}

func TestRows(t *testing.T) {
	snap := testSnapshot()
	snap.Instances = append(snap.Instances, session.Instance{PID: 40, Window: 0x40, VersionName: "unknown"})

	got := rows(snap)
	if len(got) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(got))
	}
	want := [][]string{
		{"20", "0x20", "0", "Excel 2013", "topmost primary"},
		{"10", "0x10", "2", "Excel 2016", ""},
		{"40", "0x40", "-", "unknown", ""},
	}
	for i, row := range got {
		for j, cell := range row {
			if cell != want[i][j] {
				t.Errorf("rows[%d][%d] = %q, want %q", i, j, cell, want[i][j])
			}
		}
	}
}

func TestUpdate_SnapshotFillsTable(t *testing.T) {
	m := newTestModel(nil)
	m, _ = update(t, m, snapshotMsg{snap: testSnapshot()})

	if m.snap == nil {
		t.Fatal("snapshot not stored")
	}
	pid, ok := m.selectedPID()
	if !ok || pid != 20 {
		t.Fatalf("selectedPID = %d, %v; want 20", pid, ok)
	}

	view := m.View()
	for _, want := range []string{"session 1", "EXCEL", "2 instances", "1 unreachable", "Excel 2016"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestUpdate_SnapshotErrorKeepsPreviousRows(t *testing.T) {
	m := newTestModel(nil)
	m, _ = update(t, m, snapshotMsg{snap: testSnapshot()})
	m, _ = update(t, m, snapshotMsg{err: errors.New("z-order changed")})

	if m.snap == nil || len(m.table.Rows()) != 2 {
		t.Fatalf("rows dropped after error: %d", len(m.table.Rows()))
	}
	if !strings.Contains(m.View(), "error: z-order changed") {
		t.Errorf("View() does not show the error")
	}
}

func TestUpdate_RefreshKeys(t *testing.T) {
	m := newTestModel(nil)

	m, cmd := update(t, m, key("r"))
	if cmd == nil {
		t.Fatal("r returned no command")
	}
	msg, ok := cmd().(snapshotMsg)
	if !ok || msg.snap == nil {
		t.Fatalf("refresh produced %T", msg)
	}
	if m.status != "refreshing" {
		t.Errorf("status = %q", m.status)
	}
	m, _ = update(t, m, msg)
	if m.status != "" {
		t.Errorf("status after refresh = %q, want empty", m.status)
	}

	if _, cmd := update(t, m, tickMsg(time.Now())); cmd == nil {
		t.Error("tick returned no command")
	}
}

func TestUpdate_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := update(t, newTestModel(nil), key(k))
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", k)
		}
	}
}

func TestUpdate_WindowSize(t *testing.T) {
	m, _ := update(t, newTestModel(nil), tea.WindowSizeMsg{Width: 100, Height: 30})
	if m.width != 100 || m.height != 30 {
		t.Fatalf("size = %dx%d", m.width, m.height)
	}
	if m.table.Height() != 24 {
		t.Errorf("table height = %d, want 24", m.table.Height())
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 4})
	if m.table.Height() != 3 {
		t.Errorf("table height = %d, want 3", m.table.Height())
	}
}

func TestConfirm_OpenAndEscape(t *testing.T) {
	m := newTestModel(nil)
	m, _ = update(t, m, snapshotMsg{snap: testSnapshot()})

	m, _ = update(t, m, key("enter"))
	if m.confirm == nil || m.pendingPID != 20 {
		t.Fatalf("confirm not opened for 20 (pending %d)", m.pendingPID)
	}

	// Refresh traffic still lands while the dialog is up.
	m, _ = update(t, m, snapshotMsg{snap: testSnapshot()})
	if m.confirm == nil {
		t.Fatal("snapshot closed the dialog")
	}

	m, _ = update(t, m, key("esc"))
	if m.confirm != nil || m.status != "cancelled" {
		t.Fatalf("esc: confirm=%v status=%q", m.confirm != nil, m.status)
	}
}

func TestConfirm_EmptyTable(t *testing.T) {
	m, _ := update(t, newTestModel(nil), key("enter"))
	if m.confirm != nil {
		t.Fatal("dialog opened with no selection")
	}
}

func TestCloseConfirm(t *testing.T) {
	tests := []struct {
		name     string
		state    huh.FormState
		accept   bool
		activate bool
	}{
		{"accepted", huh.StateCompleted, true, true},
		{"declined", huh.StateCompleted, false, false},
		{"aborted", huh.StateAborted, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var activated []platform.ProcessID
			m := newTestModel(&activated)
			m, _ = update(t, m, snapshotMsg{snap: testSnapshot()})
			m, _ = update(t, m, key("enter"))

			m.confirm.State = tt.state
			*m.confirmed = tt.accept
			next, cmd := m.closeConfirm()
			nm := next.(model)
			if nm.confirm != nil {
				t.Fatal("dialog still open")
			}

			if !tt.activate {
				if cmd != nil || nm.status != "cancelled" {
					t.Fatalf("cmd=%v status=%q, want no activation", cmd != nil, nm.status)
				}
				return
			}
			if cmd == nil {
				t.Fatal("no activation command")
			}
			msg, ok := cmd().(activatedMsg)
			if !ok || msg.pid != 20 || msg.err != nil {
				t.Fatalf("activation msg = %+v", msg)
			}
			if len(activated) != 1 || activated[0] != 20 {
				t.Fatalf("activated = %v, want [20]", activated)
			}
		})
	}
}

func TestUpdate_Activated(t *testing.T) {
	m := newTestModel(nil)

	m, cmd := update(t, m, activatedMsg{pid: 10})
	if m.status != "activated 10" || cmd == nil {
		t.Fatalf("status=%q cmd=%v", m.status, cmd != nil)
	}

	m, cmd = update(t, m, activatedMsg{pid: 10, err: errors.New("not activated")})
	if !strings.Contains(m.status, "activate 10 failed") || cmd != nil {
		t.Fatalf("status=%q cmd=%v", m.status, cmd != nil)
	}
}
