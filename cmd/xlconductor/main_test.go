package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/xlconductor/internal/config"
	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/platform/platformtest"
)

// newDesktop has a foreign window in front of instances 10 and 20, plus an
// unreachable process 30.
func newDesktop() *platformtest.Desktop {
	d := platformtest.NewDesktop(1)
	d.AddProcess(999, "explorer.exe", 1)
	d.AddWindow(999, 0x999)
	d.AddApp(10, "EXCEL.EXE", 0x10, "16.0")
	d.AddApp(20, "EXCEL.EXE", 0x20, "15.0")
	d.AddProcess(30, "EXCEL.EXE", 1)
	return d
}

type output struct {
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func setup(t *testing.T, d *platformtest.Desktop) output {
	t.Helper()
	t.Setenv("XLCONDUCTOR_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	out := output{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	oldOut, oldErr, oldBackend := stdout, stderr, newBackend
	stdout, stderr = out.stdout, out.stderr
	newBackend = func(platform.Options) (platform.Backend, error) {
		if d == nil {
			return nil, errors.New("no display")
		}
		return d, nil
	}
	t.Cleanup(func() {
		stdout, stderr, newBackend = oldOut, oldErr, oldBackend
	})
	return out
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRun_Usage(t *testing.T) {
	out := setup(t, nil)
	if code := run(nil); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	if !strings.Contains(out.stdout.String(), "Usage: xlconductor") {
		t.Errorf("usage not printed: %q", out.stdout.String())
	}

	if code := run([]string{"bogus"}); code != 2 {
		t.Fatalf("run(bogus) = %d, want 2", code)
	}
	if !strings.Contains(out.stderr.String(), "Unknown command: bogus") {
		t.Errorf("stderr = %q", out.stderr.String())
	}
}

func TestRun_BackendFailure(t *testing.T) {
	out := setup(t, nil)
	if code := run([]string{"list"}); code != 1 {
		t.Fatalf("list = %d, want 1", code)
	}
	if !strings.Contains(out.stderr.String(), "no display") {
		t.Errorf("stderr = %q", out.stderr.String())
	}
}

func TestList(t *testing.T) {
	out := setup(t, newDesktop())
	if code := run([]string{"list"}); code != 0 {
		t.Fatalf("list = %d: %s", code, out.stderr)
	}
	want := "10\t0x10\tExcel 2016\n20\t0x20\tExcel 2013\n"
	if got := out.stdout.String(); got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
}

func TestList_JSON(t *testing.T) {
	out := setup(t, newDesktop())
	if code := run([]string{"list", "--json"}); code != 0 {
		t.Fatalf("list --json = %d: %s", code, out.stderr)
	}
	var got []listedApp
	if err := json.Unmarshal(out.stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.stdout)
	}
	if len(got) != 2 || got[0].PID != 10 || got[0].Window != "0x10" || got[1].VersionName != "Excel 2013" {
		t.Fatalf("got %+v", got)
	}
}

func TestList_Empty(t *testing.T) {
	out := setup(t, platformtest.NewDesktop(1))
	if code := run([]string{"list"}); code != 0 {
		t.Fatalf("list = %d", code)
	}
	if got := out.stdout.String(); got != "no reachable instances\n" {
		t.Fatalf("stdout = %q", got)
	}
}

func TestTopmost(t *testing.T) {
	d := newDesktop()
	out := setup(t, d)
	if code := run([]string{"topmost"}); code != 0 {
		t.Fatalf("topmost = %d: %s", code, out.stderr)
	}
	if got := out.stdout.String(); !strings.HasPrefix(got, "10\t") {
		t.Fatalf("stdout = %q, want pid 10", got)
	}
	if len(d.Focused()) != 0 {
		t.Fatalf("topmost without --activate focused %v", d.Focused())
	}

	d.Raise(0x20)
	out.stdout.Reset()
	if code := run([]string{"topmost", "--activate"}); code != 0 {
		t.Fatalf("topmost --activate = %d: %s", code, out.stderr)
	}
	if got := out.stdout.String(); !strings.HasPrefix(got, "20\t") {
		t.Fatalf("stdout = %q, want pid 20", got)
	}
	if f := d.Focused(); len(f) != 1 || f[0] != 0x20 {
		t.Fatalf("Focused = %v, want [0x20]", f)
	}
}

func TestTopmost_NoInstances(t *testing.T) {
	out := setup(t, platformtest.NewDesktop(1))
	if code := run([]string{"topmost"}); code != 1 {
		t.Fatalf("topmost = %d, want 1", code)
	}
	if !strings.Contains(out.stderr.String(), "no reachable instances") {
		t.Errorf("stderr = %q", out.stderr)
	}
}

func TestPrimary(t *testing.T) {
	d := newDesktop()
	out := setup(t, d)
	if code := run([]string{"primary"}); code != 1 {
		t.Fatalf("primary with no active object = %d, want 1", code)
	}

	d.SetActive(20)
	if code := run([]string{"primary"}); code != 0 {
		t.Fatalf("primary = %d: %s", code, out.stderr)
	}
	if got := out.stdout.String(); !strings.HasPrefix(got, "20\t0x20") {
		t.Fatalf("stdout = %q", got)
	}
}

func TestActivate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		code    int
		focused []platform.WindowHandle
	}{
		{"reachable", []string{"activate", "20"}, 0, []platform.WindowHandle{0x20}},
		{"unreachable", []string{"activate", "30"}, 1, nil},
		{"unknown pid", []string{"activate", "77"}, 1, nil},
		{"not a number", []string{"activate", "abc"}, 2, nil},
		{"missing pid", []string{"activate"}, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDesktop()
			out := setup(t, d)
			if code := run(tt.args); code != tt.code {
				t.Fatalf("code = %d, want %d (stderr %q)", code, tt.code, out.stderr)
			}
			f := d.Focused()
			if len(f) != len(tt.focused) {
				t.Fatalf("Focused = %v, want %v", f, tt.focused)
			}
			for i := range f {
				if f[i] != tt.focused[i] {
					t.Fatalf("Focused = %v, want %v", f, tt.focused)
				}
			}
		})
	}
}

func TestStatus_JSON(t *testing.T) {
	d := newDesktop()
	d.SetActive(20)
	out := setup(t, d)
	if code := run([]string{"status", "--format", "json"}); code != 0 {
		t.Fatalf("status = %d: %s", code, out.stderr)
	}

	var snap struct {
		SessionID   uint32   `json:"session_id"`
		TopMostPID  uint32   `json:"topmost_pid"`
		PrimaryPID  uint32   `json:"primary_pid"`
		Unreachable []uint32 `json:"unreachable"`
		Instances   []struct {
			PID uint32 `json:"pid"`
		} `json:"instances"`
	}
	if err := json.Unmarshal(out.stdout.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.stdout)
	}
	if snap.SessionID != 1 || snap.TopMostPID != 10 || snap.PrimaryPID != 20 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Instances) != 2 || len(snap.Unreachable) != 1 || snap.Unreachable[0] != 30 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStatus_FormatFromConfig(t *testing.T) {
	out := setup(t, newDesktop())
	path := writeConfig(t, "output:\n  format: yaml\n")
	if code := run([]string{"status", "--config", path}); code != 0 {
		t.Fatalf("status = %d: %s", code, out.stderr)
	}
	if !strings.Contains(out.stdout.String(), "session_id: 1") {
		t.Fatalf("stdout = %q, want YAML", out.stdout)
	}
}

func TestStatus_BadFormat(t *testing.T) {
	setup(t, newDesktop())
	if code := run([]string{"status", "--format", "xml"}); code != 2 {
		t.Fatalf("status --format xml = %d, want 2", code)
	}
}

func TestZOrder(t *testing.T) {
	d := newDesktop()
	d.Hide(0x20)
	out := setup(t, d)
	if code := run([]string{"zorder"}); code != 0 {
		t.Fatalf("zorder = %d: %s", code, out.stderr)
	}
	want := "0\t0x999\t999\tvisible\n1\t0x10\t10\tvisible\n2\t0x20\t20\t\n"
	if got := out.stdout.String(); got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}

	out.stdout.Reset()
	if code := run([]string{"zorder", "--from", "0x20", "--front"}); code != 0 {
		t.Fatalf("zorder --front = %d: %s", code, out.stderr)
	}
	lines := strings.Split(strings.TrimSpace(out.stdout.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "0\t0x10\t") || !strings.HasPrefix(lines[1], "1\t0x999\t") {
		t.Fatalf("stdout = %q", out.stdout)
	}
}

func TestZOrder_BadHandle(t *testing.T) {
	setup(t, newDesktop())
	if code := run([]string{"zorder", "--from", "zz"}); code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
	if code := run([]string{"zorder", "--from", "0x55"}); code != 1 {
		t.Fatalf("closed start window: code = %d, want 1", code)
	}
}

func TestZOrder_FrontNeedsStart(t *testing.T) {
	out := setup(t, newDesktop())
	if code := run([]string{"zorder", "--front"}); code != 2 {
		t.Fatalf("zorder --front = %d, want 2", code)
	}
	if out.stdout.Len() != 0 || !strings.Contains(out.stderr.String(), "--front requires --from") {
		t.Fatalf("stdout=%q stderr=%q", out.stdout, out.stderr)
	}
}

func TestConfigCommands(t *testing.T) {
	out := setup(t, nil)
	path := writeConfig(t, "executable: EXCEL\nzorder:\n  max_steps: 128\n")

	if code := run([]string{"config", "validate", "--config", path}); code != 0 {
		t.Fatalf("validate = %d: %s", code, out.stderr)
	}
	if got := out.stdout.String(); got != "config: ok\n" {
		t.Fatalf("validate stdout = %q", got)
	}

	out.stdout.Reset()
	if code := run([]string{"config", "print", "--config", path}); code != 0 {
		t.Fatalf("print = %d: %s", code, out.stderr)
	}
	if !strings.Contains(out.stdout.String(), "max_steps: 128") {
		t.Fatalf("print stdout = %q", out.stdout)
	}

	out.stdout.Reset()
	if code := run([]string{"config", "print", "--defaults"}); code != 0 {
		t.Fatalf("print --defaults = %d", code)
	}
	if !strings.Contains(out.stdout.String(), "max_steps: 4096") {
		t.Fatalf("print --defaults stdout = %q", out.stdout)
	}

	out.stdout.Reset()
	if code := run([]string{"config", "explain", "--config", path, "zorder.max_steps"}); code != 0 {
		t.Fatalf("explain = %d: %s", code, out.stderr)
	}
	got := out.stdout.String()
	if !strings.Contains(got, "source: file:") || !strings.Contains(got, "128") {
		t.Fatalf("explain stdout = %q", got)
	}

	out.stdout.Reset()
	if code := run([]string{"config", "explain", "--config", path, "log.level"}); code != 0 {
		t.Fatalf("explain log.level = %d", code)
	}
	if !strings.Contains(out.stdout.String(), "source: default") {
		t.Fatalf("explain stdout = %q", out.stdout)
	}
}

func TestConfigValidate_Invalid(t *testing.T) {
	out := setup(t, nil)
	path := writeConfig(t, "zorder:\n  max_steps: -1\n")
	if code := run([]string{"config", "validate", "--config", path}); code != 1 {
		t.Fatalf("validate = %d, want 1", code)
	}
	if !strings.Contains(out.stderr.String(), "max_steps") {
		t.Errorf("stderr = %q", out.stderr)
	}
}

func TestConfig_Usage(t *testing.T) {
	setup(t, nil)
	if code := run([]string{"config"}); code != 2 {
		t.Fatalf("config = %d, want 2", code)
	}
	if code := run([]string{"config", "nope"}); code != 2 {
		t.Fatalf("config nope = %d, want 2", code)
	}
}

func TestMCP_Usage(t *testing.T) {
	out := setup(t, nil)
	if code := run([]string{"mcp"}); code != 2 {
		t.Fatalf("mcp = %d, want 2", code)
	}
	if code := run([]string{"mcp", "help"}); code != 0 {
		t.Fatalf("mcp help = %d, want 0", code)
	}
	if !strings.Contains(out.stdout.String(), "serve") {
		t.Errorf("stdout = %q", out.stdout)
	}
}

func TestWatch_RejectsShortInterval(t *testing.T) {
	setup(t, newDesktop())
	if code := run([]string{"watch", "--interval", "1ms"}); code != 2 {
		t.Fatalf("watch --interval 1ms = %d, want 2", code)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := newLogger(cfg, &buf)
	logger.Info("dropped")
	logger.Warn("kept", "pid", 10)

	got := buf.String()
	if strings.Contains(got, "dropped") {
		t.Errorf("info logged at warn level: %q", got)
	}
	if !strings.Contains(got, `"msg":"kept"`) || !strings.Contains(got, `"pid":10`) {
		t.Errorf("json output = %q", got)
	}
}

func TestUseColor(t *testing.T) {
	cfg := config.DefaultConfig()
	var buf bytes.Buffer

	cfg.Output.Color = "always"
	if !useColor(cfg, &buf) {
		t.Error("always: got false")
	}
	cfg.Output.Color = "never"
	if useColor(cfg, &buf) {
		t.Error("never: got true")
	}
	cfg.Output.Color = "auto"
	if useColor(cfg, &buf) {
		t.Error("auto on a buffer: got true")
	}
}
