package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qbloch"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	vectorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

const help = `gates:    x y z h s t | p <angle> | rx <angle> | ry <angle> | rz <angle> | measure
history:  prev next reset replay history
target:   target <x> <y> <z>  moves the display to any vector
info:     state metrics help quit
angles are radians and accept pi, pi/2, -pi/4 ...`

func main() {
	cfgPath := os.Getenv("QBLOCH_CONFIG")
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	if err := run(cfgPath, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func run(cfgPath string, in io.Reader, out io.Writer) error {
	cfg, err := qbloch.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	session, err := qbloch.NewSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	broadcast := qbloch.NewBroadcast(cfg.BufferSize, session.Metrics())
	defer broadcast.Close()

	arrivals := broadcast.Subscribe("terminal", qbloch.Arrivals)
	go func() {
		for sample := range arrivals {
			fmt.Fprintf(out, "%s %s\n", dimStyle.Render("at"), vectorStyle.Render(sample.Target.String()))
		}
	}()

	go func() {
		if err := qbloch.NewAnimator(session, broadcast).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errnie.Info("Animator stopped - %v", err)
		}
	}()

	fmt.Fprintln(out, titleStyle.Render("Bloch sphere session "+session.ID()))
	fmt.Fprintln(out, help)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handle(ctx, session, strings.Fields(line), out); quit {
				return nil
			}
		}
	}
}

// handle executes one command line and reports whether the driver should exit.
func handle(ctx context.Context, s *qbloch.Session, fields []string, out io.Writer) bool {
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToLower(fields[0])
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprintln(out, help)
	case "state":
		fmt.Fprintln(out, s.State())
	case "history":
		cursor := s.Cursor()
		for i, f := range s.History() {
			marker := " "
			if i == cursor {
				marker = ">"
			}
			fmt.Fprintf(out, "%s %s\n", marker, f)
		}
	case "metrics":
		m := s.Metrics().ExportMetrics()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%-20s %v\n", k, m[k])
		}
	case "prev", "previous", "next", "reset", "rewind":
		d, _ := qbloch.ParseDirection(cmd)
		if _, ok := s.Navigate(d); !ok {
			fmt.Fprintln(out, dimStyle.Render("already at the "+boundaryName(d)))
		}
	case "target":
		v, err := parseVector(fields[1:])
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			return false
		}
		if _, err := s.Aim(v); err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			return false
		}
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render("->"), vectorStyle.Render(v.String()))
	case "replay":
		go func() {
			if err := s.Replay(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
		}()
	default:
		var angles []float64
		if len(fields) > 1 {
			a, err := parseAngle(fields[1])
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
				return false
			}
			angles = append(angles, a)
		}

		if s.Collapsed() {
			fmt.Fprintln(out, dimStyle.Render("qubit is measured, gates have no effect"))
		}

		v, err := s.ApplyGate(cmd, angles...)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			return false
		}
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render("->"), vectorStyle.Render(v.String()))
	}

	return false
}

func parseVector(fields []string) (qbloch.Vector, error) {
	if len(fields) != 3 {
		return qbloch.Vector{}, errors.New("target needs x y z")
	}

	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return qbloch.Vector{}, fmt.Errorf("bad coordinate %q", f)
		}
		c[i] = v
	}
	return qbloch.Vector{X: c[0], Y: c[1], Z: c[2]}, nil
}

func boundaryName(d qbloch.Direction) string {
	if d == qbloch.Next {
		return "latest frame"
	}
	return "first frame"
}

// parseAngle reads finite radians as a plain number or as a multiple or
// fraction of pi: "pi", "-pi", "pi/2", "3pi/4".
func parseAngle(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(s, "pi") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("bad angle %q", s)
		}
		return v, nil
	}

	num, den, hasDen := strings.Cut(s, "/")
	coef := strings.TrimSuffix(num, "pi")

	var k float64
	switch coef {
	case "", "+":
		k = 1
	case "-":
		k = -1
	default:
		var err error
		if k, err = strconv.ParseFloat(coef, 64); err != nil {
			return 0, fmt.Errorf("bad angle %q", s)
		}
	}

	if hasDen {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad angle %q", s)
		}
		k /= d
	}

	a := k * math.Pi
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, fmt.Errorf("bad angle %q", s)
	}
	return a, nil
}
