package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("doc")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())

	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}

func TestDocumentIDFor_Stable(t *testing.T) {
	assert.Equal(t, DocumentIDFor("a.txt"), DocumentIDFor("a.txt"))
	assert.NotEqual(t, DocumentIDFor("a.txt"), DocumentIDFor("b.txt"))
}

func TestPointID_UniquePerRun(t *testing.T) {
	assert.Equal(t, PointID("d", "v1", 0), PointID("d", "v1", 0))
	assert.NotEqual(t, PointID("d", "v1", 0), PointID("d", "v2", 0))
	assert.NotEqual(t, PointID("d", "v1", 0), PointID("d", "v1", 1))
}
