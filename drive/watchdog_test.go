package drive

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWatchdog(t *testing.T) {
	Convey("a fresh watchdog", t, func() {
		w := NewWatchdog(50 * time.Millisecond)

		Convey("starts out connected", func() {
			So(w.IsConnected(), ShouldBeTrue)
		})

		Convey("expires once the timeout elapses without a command", func() {
			time.Sleep(80 * time.Millisecond)
			So(w.IsConnected(), ShouldBeFalse)

			Convey("and recovers on the next command", func() {
				w.Reset()
				So(w.IsConnected(), ShouldBeTrue)
			})
		})

		Convey("stays connected while commands keep arriving", func() {
			for i := 0; i < 3; i++ {
				time.Sleep(20 * time.Millisecond)
				w.Reset()
			}
			So(w.IsConnected(), ShouldBeTrue)
		})

		Convey("reports when the last command arrived", func() {
			before := time.Now()
			w.Reset()
			So(w.LastCommand(), ShouldHappenOnOrAfter, before)
		})
	})
}
