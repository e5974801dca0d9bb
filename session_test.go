package qbloch

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func testConfig(step float64) *Config {
	cfg := NewConfig()
	cfg.Step = step
	cfg.TickInterval = time.Millisecond
	return cfg
}

func tickUntilArrived(s *Session, max int) int {
	for i := 1; i <= max; i++ {
		if s.Advance().Arrived {
			return i
		}
	}
	return -1
}

func TestNewSession(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		s, err := NewSession(nil)
		So(err, ShouldBeNil)

		Convey("The session rests on |0⟩ with one recorded frame", func() {
			So(s.Position(), ShouldResemble, Vector{0, 0, 1})
			So(s.Progress(), ShouldEqual, 1.0)
			So(s.Collapsed(), ShouldBeFalse)
			So(s.Cursor(), ShouldEqual, 0)

			history := s.History()
			So(len(history), ShouldEqual, 1)
			So(history[0].Gate, ShouldEqual, GateInit)
			So(history[0].Phase, ShouldEqual, 0.0)

			_, err := uuid.Parse(s.ID())
			So(err, ShouldBeNil)
		})
	})

	Convey("Given amplitudes off the unit sphere", t, func() {
		s, err := NewSession(nil, WithAmplitudes(1, 1))

		So(s, ShouldBeNil)
		var invalid *InvalidStateError
		So(errors.As(err, &invalid), ShouldBeTrue)
		So(invalid.Sum, ShouldAlmostEqual, 2, 1e-12)
	})

	Convey("Given an initial basis label", t, func() {
		cfg := NewConfig()
		cfg.Initial = "-i"
		s, err := NewSession(cfg)

		So(err, ShouldBeNil)
		So(s.Position().ApproxEqual(Vector{0, -1, 0}, 1e-9), ShouldBeTrue)
		So(s.Target().Phase, ShouldAlmostEqual, 0.75, 1e-9)
	})

	Convey("Given an invalid configuration", t, func() {
		cfg := NewConfig()
		cfg.Step = 0

		_, err := NewSession(cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestSessionGates(t *testing.T) {
	Convey("Given a session on |0⟩", t, func() {
		s, _ := NewSession(testConfig(0.25))

		Convey("Applying Hadamard records a frame and retargets", func() {
			v, err := s.ApplyGate("h")
			So(err, ShouldBeNil)
			So(v.ApproxEqual(Vector{1, 0, 0}, 1e-9), ShouldBeTrue)

			So(len(s.History()), ShouldEqual, 2)
			So(s.Cursor(), ShouldEqual, 1)
			So(s.Progress(), ShouldEqual, 0.0)
			So(s.Target().Gate, ShouldEqual, GateH)
			So(s.Position(), ShouldResemble, Vector{0, 0, 1})

			Convey("Ticks walk the arc and stop on the target", func() {
				So(s.Tick().ApproxEqual(Slerp(Vector{0, 0, 1}, Vector{1, 0, 0}, 0.25), 1e-12), ShouldBeTrue)
				So(tickUntilArrived(s, 10), ShouldEqual, 3)
				So(s.Position().ApproxEqual(Vector{1, 0, 0}, 1e-9), ShouldBeTrue)

				So(s.Tick(), ShouldResemble, s.Position())
				So(s.Progress(), ShouldEqual, 1.0)
			})

			Convey("A phase gate shows up in the frame's phase fraction", func() {
				s.ApplyGate("s")
				So(s.Target().Phase, ShouldAlmostEqual, 0.25, 1e-9)
			})
		})

		Convey("Unknown gates are rejected", func() {
			_, err := s.ApplyGate("cnot")
			So(errors.Is(err, ErrUnknownGate), ShouldBeTrue)
			So(len(s.History()), ShouldEqual, 1)
		})

		Convey("Parametric gates need an angle", func() {
			_, err := s.ApplyGate("rx")
			So(errors.Is(err, ErrMissingAngle), ShouldBeTrue)

			v, err := s.ApplyGate("RX", math.Pi)
			So(err, ShouldBeNil)
			So(v.ApproxEqual(Vector{0, 0, -1}, 1e-9), ShouldBeTrue)
		})
	})

	Convey("Given a session with a via axis", t, func() {
		cfg := testConfig(0.25)
		cfg.ViaAxis = "x"
		s, _ := NewSession(cfg)

		Convey("An X gate travels through +X", func() {
			s.ApplyGate("x")
			s.Tick()
			So(s.Tick().ApproxEqual(Vector{1, 0, 0}, 1e-9), ShouldBeTrue)
			So(tickUntilArrived(s, 10), ShouldEqual, 2)
			So(s.Position().ApproxEqual(Vector{0, 0, -1}, 1e-9), ShouldBeTrue)
		})
	})
}

func TestSessionMeasure(t *testing.T) {
	Convey("Given a session in superposition", t, func() {
		s, _ := NewSession(testConfig(0.5), WithRandom(fixedSource(0.2)))
		s.ApplyGate("h")

		Convey("Measuring records exactly one frame", func() {
			first := s.Measure()
			So(first.ApproxEqual(Vector{0, 0, 1}, 1e-12), ShouldBeTrue)
			So(s.Collapsed(), ShouldBeTrue)
			So(len(s.History()), ShouldEqual, 3)
			So(s.Target().Gate, ShouldEqual, GateMeasure)

			So(s.Measure(), ShouldResemble, first)
			v, err := s.ApplyGate("x")
			So(err, ShouldBeNil)
			So(v, ShouldResemble, first)
			So(len(s.History()), ShouldEqual, 3)

			m := s.Metrics().ExportMetrics()
			So(m["measurements"], ShouldEqual, int64(1))
			So(m["outcome_0"], ShouldEqual, int64(1))
			So(m["ignored_gates"], ShouldEqual, int64(2))
		})
	})

	Convey("Given many sessions sharing metrics", t, func() {
		metrics := NewMetrics()
		src := rand.New(rand.NewPCG(5, 8))
		h := complex(1/math.Sqrt2, 0)

		for i := 0; i < 2000; i++ {
			s, err := NewSession(nil, WithAmplitudes(h, h), WithRandom(src), WithMetrics(metrics))
			So(err, ShouldBeNil)
			s.Measure()
		}

		So(metrics.Measurements, ShouldEqual, int64(2000))
		So(metrics.ZeroFraction(), ShouldAlmostEqual, 0.5, 0.05)
	})
}

func TestSessionNavigate(t *testing.T) {
	Convey("Given a session with three gates applied", t, func() {
		s, _ := NewSession(testConfig(0.5))
		s.ApplyGate("h")
		s.ApplyGate("s")
		s.ApplyGate("x")
		before := s.History()

		Convey("Next at the end is a no-op", func() {
			f, ok := s.Navigate(Next)
			So(ok, ShouldBeFalse)
			So(f.Seq, ShouldEqual, uint64(3))
		})

		Convey("Previous and reset retarget without touching history", func() {
			f, ok := s.Navigate(Previous)
			So(ok, ShouldBeTrue)
			So(f.Gate, ShouldEqual, GateS)
			So(s.Target(), ShouldResemble, f)
			So(s.Progress(), ShouldEqual, 0.0)

			f, ok = s.Navigate(Rewind)
			So(ok, ShouldBeTrue)
			So(f.Seq, ShouldEqual, uint64(0))

			_, ok = s.Navigate(Rewind)
			So(ok, ShouldBeFalse)
			_, ok = s.Navigate(Previous)
			So(ok, ShouldBeFalse)

			So(s.History(), ShouldResemble, before)
			So(s.Metrics().BoundaryHit, ShouldEqual, int64(2))
		})

		Convey("A retarget mid-flight starts from the displayed position", func() {
			s.Tick()
			shown := s.Position()
			s.Navigate(Previous)

			So(s.Position(), ShouldResemble, shown)
			So(s.Tick().ApproxEqual(Slerp(shown, s.Target().Vector(), 0.5), 1e-12), ShouldBeTrue)
		})

		Convey("Gates after navigating back still append at the end", func() {
			s.Navigate(Rewind)
			s.ApplyGate("z")
			So(s.Cursor(), ShouldEqual, 4)
			So(len(s.History()), ShouldEqual, 5)
		})
	})
}

func TestSessionAwait(t *testing.T) {
	Convey("Given a session at rest", t, func() {
		s, _ := NewSession(testConfig(0.5))

		Convey("Await is already satisfied", func() {
			select {
			case f := <-s.Await():
				So(f.Seq, ShouldEqual, uint64(0))
			default:
				t.Fatal("await should be ready")
			}
		})

		Convey("Await waits for the transition to finish", func() {
			s.ApplyGate("h")
			ch := s.Await()

			s.Tick()
			select {
			case <-ch:
				t.Fatal("await released early")
			default:
			}

			s.Tick()
			select {
			case f := <-ch:
				So(f.Gate, ShouldEqual, GateH)
			default:
				t.Fatal("await not released on arrival")
			}
		})
	})
}

func TestSessionReplay(t *testing.T) {
	Convey("Given a session with history and a running animator", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s, _ := NewSession(testConfig(0.5))
		s.ApplyGate("h")
		s.ApplyGate("x")
		s.ApplyGate("s")
		tickUntilArrived(s, 10)

		broadcast := NewBroadcast(16, s.Metrics())
		arrivals := broadcast.Subscribe("test", Arrivals)

		animCtx, stop := context.WithCancel(ctx)
		defer stop()
		go NewAnimator(s, broadcast).Run(animCtx)

		Convey("Replay visits every frame in order", func() {
			So(s.Replay(ctx), ShouldBeNil)
			So(s.Cursor(), ShouldEqual, 3)

			seen := make([]uint64, 0, 4)
			for len(seen) < 4 {
				select {
				case sample := <-arrivals:
					seen = append(seen, sample.Target.Seq)
				case <-ctx.Done():
					t.Fatalf("missing arrivals, got %s", spew.Sdump(seen))
				}
			}
			So(seen, ShouldResemble, []uint64{0, 1, 2, 3})
		})
	})

	Convey("Given nobody ticking the session", t, func() {
		s, _ := NewSession(testConfig(0.5))
		s.ApplyGate("h")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Replay stops on cancellation", func() {
			So(errors.Is(s.Replay(ctx), context.Canceled), ShouldBeTrue)
		})
	})
}

func TestSessionConcurrency(t *testing.T) {
	Convey("Given gates and ticks issued from several goroutines", t, func() {
		s, _ := NewSession(testConfig(0.02))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					s.ApplyGate("h")
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Tick()
			}
		}()
		wg.Wait()

		Convey("Every gate is recorded once and positions stay bounded", func() {
			history := s.History()
			So(len(history), ShouldEqual, 101)
			for i, f := range history {
				So(f.Seq, ShouldEqual, uint64(i))
			}
			So(s.Position().Len(), ShouldBeLessThanOrEqualTo, 1+1e-9)
		})
	})
}

func TestSessionNonFiniteAngles(t *testing.T) {
	Convey("Given a session in superposition", t, func() {
		s, _ := NewSession(testConfig(0.5))
		s.ApplyGate("h")
		tickUntilArrived(s, 10)
		before := s.Position()

		Convey("NaN and infinite angles are rejected without recording a frame", func() {
			for _, a := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				v, err := s.ApplyGate("rx", a)
				So(errors.Is(err, ErrInvalidAngle), ShouldBeTrue)
				So(v, ShouldResemble, before)
			}

			So(s.Apply(GateRZ, math.NaN()).ApproxEqual(before, 1e-12), ShouldBeTrue)
			So(len(s.History()), ShouldEqual, 2)
			So(s.Metrics().IgnoredGates, ShouldEqual, int64(1))

			Convey("Later gates and ticks stay on the unit sphere", func() {
				v, err := s.ApplyGate("rx", math.Pi/2)
				So(err, ShouldBeNil)
				So(v.Len(), ShouldAlmostEqual, 1, 1e-9)

				tickUntilArrived(s, 10)
				So(s.Position().IsFinite(), ShouldBeTrue)
				p0, p1 := s.Probabilities()
				So(p0+p1, ShouldAlmostEqual, 1, 1e-12)
			})
		})
	})
}

func TestSessionAim(t *testing.T) {
	Convey("Given a session resting on |0⟩", t, func() {
		s, _ := NewSession(testConfig(0.5))

		Convey("Aiming at a longer vector interpolates direction and length", func() {
			f, err := s.Aim(Vector{2, 0, 0})
			So(err, ShouldBeNil)
			So(f.Gate, ShouldEqual, GateAim)
			So(f.Seq, ShouldEqual, uint64(0))

			mid := s.Tick()
			So(mid.Len(), ShouldAlmostEqual, 1.5, 1e-12)
			So(angleBetween(mid, Vector{1, 0, 0}), ShouldAlmostEqual, math.Pi/4, 1e-12)

			So(s.Advance().Arrived, ShouldBeTrue)
			So(s.Position().ApproxEqual(Vector{2, 0, 0}, 1e-12), ShouldBeTrue)

			So(len(s.History()), ShouldEqual, 1)
			So(s.Collapsed(), ShouldBeFalse)
		})

		Convey("The next gate animates from the aimed vector", func() {
			s.Aim(Vector{0, 0, -1})
			tickUntilArrived(s, 10)
			s.ApplyGate("h")

			So(s.Tick().ApproxEqual(Slerp(Vector{0, 0, -1}, Vector{1, 0, 0}, 0.5), 1e-12), ShouldBeTrue)
		})

		Convey("Non-finite targets are rejected", func() {
			_, err := s.Aim(Vector{math.NaN(), 0, 0})
			So(errors.Is(err, ErrInvalidTarget), ShouldBeTrue)
			So(s.Target().Gate, ShouldEqual, GateInit)
		})
	})
}

func TestSessionOwnsConfig(t *testing.T) {
	Convey("Given a config changed after the session was built", t, func() {
		cfg := testConfig(0.5)
		s, _ := NewSession(cfg)
		cfg.Step = 0

		Convey("The session keeps animating with the validated step", func() {
			s.ApplyGate("x")
			So(s.Config().Step, ShouldEqual, 0.5)
			So(tickUntilArrived(s, 10), ShouldEqual, 2)
		})
	})
}
