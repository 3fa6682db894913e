package keylock_test

import (
	"sync"
	"testing"

	"github.com/longcourse/agegrade/pkg/keylock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyLock(t *testing.T) {
	Convey("Given a key lock", t, func() {
		kl := keylock.New()

		Convey("When many goroutines contend on the same key", func() {
			counter := 0
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					kl.Lock("race-1")
					counter++
					kl.Unlock("race-1")
				}()
			}
			wg.Wait()

			Convey("Then the critical section is serialized", func() {
				So(counter, ShouldEqual, 50)
			})
		})

		Convey("When different keys are locked", func() {
			kl.Lock("a")

			Convey("Then another key is not blocked", func() {
				done := make(chan struct{})
				go func() {
					kl.Lock("b")
					kl.Unlock("b")
					close(done)
				}()
				<-done
				kl.Unlock("a")
			})
		})

		Convey("When a key is re-locked after unlock", func() {
			kl.Lock("c")
			kl.Unlock("c")
			So(func() {
				kl.Lock("c")
				kl.Unlock("c")
			}, ShouldNotPanic)
		})
	})
}
