// Package report renders session snapshots for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/session"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, yaml or json)", s)
}

// Write renders snap in format f. color only affects text output.
func Write(w io.Writer, snap *session.Snapshot, f Format, color bool) error {
	switch f {
	case FormatYAML:
		return YAML(w, snap)
	case FormatJSON:
		return JSON(w, snap)
	case FormatText, "":
		return Text(w, snap, color)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// YAML encodes v with two-space indentation.
func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// JSON encodes v indented.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	dim    lipgloss.Style
	top    lipgloss.Style
	prim   lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),
		cell:   r.NewStyle().Foreground(lipgloss.Color("15")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("241")),
		top:    r.NewStyle().Foreground(lipgloss.Color("42")),
		prim:   r.NewStyle().Foreground(lipgloss.Color("226")),
	}
}

var columnWidths = []int{8, 12, 6, 20}

// Text renders snap as an aligned table, front to back.
func Text(w io.Writer, snap *session.Snapshot, color bool) error {
	st := newStyles(w, color)
	var b strings.Builder

	b.WriteString(st.title.Render(fmt.Sprintf("Session %d", snap.SessionID)))
	b.WriteString(st.dim.Render(" · " + snap.Executable))
	b.WriteString("\n")

	if len(snap.Instances) == 0 {
		b.WriteString(st.dim.Render("  no reachable instances"))
		b.WriteString("\n")
	} else {
		b.WriteString("  " + row(st.header, []string{"PID", "WINDOW", "RANK", "VERSION"}, st.header.Render("FLAGS")))
		b.WriteString("\n")
		for _, in := range snap.Instances {
			rank := "-"
			if in.Rank != nil {
				rank = strconv.Itoa(*in.Rank)
			}
			b.WriteString("  " + row(st.cell, []string{
				strconv.FormatUint(uint64(in.PID), 10),
				HandleString(in.Window),
				rank,
				in.VersionName,
			}, flags(st, in)))
			b.WriteString("\n")
		}
	}

	if len(snap.Unreachable) > 0 {
		ids := make([]string, len(snap.Unreachable))
		for i, pid := range snap.Unreachable {
			ids[i] = strconv.FormatUint(uint64(pid), 10)
		}
		b.WriteString(st.dim.Render("  unreachable: " + strings.Join(ids, ", ")))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// row pads each column to its width and appends tail unpadded.
func row(style lipgloss.Style, cols []string, tail string) string {
	var b strings.Builder
	for i, c := range cols {
		b.WriteString(style.Width(columnWidths[i]).Render(c))
	}
	b.WriteString(tail)
	return strings.TrimRight(b.String(), " ")
}

func flags(st styles, in session.Instance) string {
	var parts []string
	if in.TopMost {
		parts = append(parts, st.top.Render("topmost"))
	}
	if in.Primary {
		parts = append(parts, st.prim.Render("primary"))
	}
	return strings.Join(parts, " ")
}

// HandleString formats a window handle the way OS tools print it.
func HandleString(h platform.WindowHandle) string {
	return fmt.Sprintf("0x%x", uintptr(h))
}
