package namepool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternDeduplicates(t *testing.T) {
	p := New()
	a := p.Intern("foo.txt")
	b := p.Intern("foo.txt")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, p.Len())
}

func TestInternDistinctNames(t *testing.T) {
	p := New()
	p.Intern("a")
	p.Intern("b")
	p.Intern("a")
	assert.Equal(t, 2, p.Len())
}

func TestInternConcurrent(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Intern("shared-name")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.Len())
}
