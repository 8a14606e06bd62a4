package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/report"
	"github.com/1broseidon/xlconductor/internal/session"
	"github.com/1broseidon/xlconductor/internal/zorder"
)

type listedApp struct {
	PID         platform.ProcessID `json:"pid"`
	Window      string             `json:"window"`
	Visible     bool               `json:"visible"`
	Version     string             `json:"version,omitempty"`
	VersionName string             `json:"version_name"`
}

func printApp(w io.Writer, app platform.App) {
	fmt.Fprintf(w, "%d\t%s\t%s\n", app.PID, report.HandleString(app.Window), session.VersionName(app.Version))
}

func runList(args []string) int {
	fs, path := newFlagSet("list", "list [--config PATH] [--json]")
	asJSON := fs.Bool("json", false, "Print JSON instead of text")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	apps, err := e.sess.Applications()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if *asJSON {
		out := make([]listedApp, 0, len(apps))
		for _, app := range apps {
			out = append(out, listedApp{
				PID:         app.PID,
				Window:      report.HandleString(app.Window),
				Visible:     app.Visible,
				Version:     app.Version,
				VersionName: session.VersionName(app.Version),
			})
		}
		if err := report.JSON(stdout, out); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	if len(apps) == 0 {
		fmt.Fprintln(stdout, "no reachable instances")
		return 0
	}
	for _, app := range apps {
		printApp(stdout, app)
	}
	return 0
}

func runTopmost(args []string) int {
	fs, path := newFlagSet("topmost", "topmost [--config PATH] [--activate]")
	activate := fs.Bool("activate", false, "Bring the topmost instance to the front")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	app, ok, err := e.sess.TopMost()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stderr, "no reachable instances")
		return 1
	}
	printApp(stdout, app)

	if *activate {
		if err := e.sess.Activate(app); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return 0
}

func runPrimary(args []string) int {
	fs, path := newFlagSet("primary", "primary [--config PATH]")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	app, ok, err := e.sess.PrimaryInstance()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stderr, "no primary instance")
		return 1
	}
	printApp(stdout, app)
	return 0
}

func runActivate(args []string) int {
	fs, path := newFlagSet("activate", "activate [--config PATH] <pid>")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "activate requires <pid>")
		return 2
	}
	pid, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil {
		fmt.Fprintf(stderr, "invalid pid %q\n", fs.Arg(0))
		return 2
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	app, err := e.sess.Find(platform.ProcessID(pid))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := e.sess.Activate(app); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	printApp(stdout, app)
	return 0
}

func runStatus(args []string) int {
	fs, path := newFlagSet("status", "status [--config PATH] [--format text|yaml|json]")
	format := fs.String("format", "", "Output format (default: output.format from config)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	name := *format
	if name == "" {
		name = e.cfg.Output.Format
	}
	f, err := report.ParseFormat(name)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	snap, err := e.sess.Snapshot()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := report.Write(stdout, snap, f, useColor(e.cfg, stdout)); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func runZOrder(args []string) int {
	fs, path := newFlagSet("zorder", "zorder [--config PATH] [--from HANDLE] [--front]")
	from := fs.String("from", "", "Start after this window handle (default: the frontmost window)")
	front := fs.Bool("front", false, "Walk towards the front instead of the back")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	if *front && *from == "" {
		fmt.Fprintln(stderr, "--front requires --from: nothing is in front of the frontmost window")
		return 2
	}

	start := platform.NoWindow
	if *from != "" {
		h, err := strconv.ParseUint(*from, 0, 64)
		if err != nil {
			fmt.Fprintf(stderr, "invalid window handle %q\n", *from)
			return 2
		}
		start = platform.WindowHandle(h)
	}
	dir := zorder.Behind
	if *front {
		dir = zorder.InFront
	}

	e, err := openEnv(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer e.Close()

	handles, err := zorder.Enumerate(e.backend, start, dir, e.cfg.ZOrder.MaxSteps)
	if err != nil {
		if errors.Is(err, platform.ErrInvalidHandle) {
			fmt.Fprintf(stderr, "window %s no longer exists\n", *from)
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	for i, h := range handles {
		pid := "-"
		if p, err := e.backend.ProcessOf(h); err == nil {
			pid = strconv.FormatUint(uint64(p), 10)
		}
		vis := ""
		if e.backend.IsVisible(h) {
			vis = "visible"
		}
		fmt.Fprintf(stdout, "%d\t%s\t%s\t%s\n", i, report.HandleString(h), pid, vis)
	}
	return 0
}
