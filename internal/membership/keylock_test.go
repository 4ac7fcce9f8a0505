package membership

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("keyedMutex", func() {
	It("serializes holders of the same key", func() {
		k := newKeyedMutex()
		var inside, maxInside int32
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock(7)
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				atomic.AddInt32(&inside, -1)
				unlock()
			}()
		}
		wg.Wait()

		Expect(maxInside).To(Equal(int32(1)))
		Expect(k.size()).To(BeZero())
	})

	It("does not block unrelated keys", func() {
		k := newKeyedMutex()
		unlockA := k.Lock(1)
		defer unlockA()

		done := make(chan struct{})
		go func() {
			k.Lock(2)()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})
})
