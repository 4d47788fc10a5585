package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mibi-viewer/internal/logger"
)

type recorder struct {
	mu    *sync.Mutex
	order *[]string
	name  string
	block chan struct{}
}

func (r recorder) Shutdown() {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.order = append(*r.order, r.name)
}

func TestShutdownReverseOrderOnce(t *testing.T) {
	m := NewManager(logger.Nop())
	var mu sync.Mutex
	var order []string
	m.Register("view", recorder{mu: &mu, order: &order, name: "view"})
	m.Register("controller", recorder{mu: &mu, order: &order, name: "controller"})

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"controller", "view"}, order)
	assert.Error(t, m.Context().Err())
	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager(logger.Nop())
	m.SetTimeout(10 * time.Millisecond)

	block := make(chan struct{})
	defer close(block)
	var mu sync.Mutex
	var order []string
	m.Register("stuck", recorder{mu: &mu, order: &order, name: "stuck", block: block})

	start := time.Now()
	m.Shutdown()
	assert.Less(t, time.Since(start), time.Second)
}
