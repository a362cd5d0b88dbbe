package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fake struct {
	name    string
	failing bool
	calls   *[]string
}

func (f *fake) Startup() error {
	*f.calls = append(*f.calls, "start "+f.name)
	if f.failing {
		return errors.New("boom")
	}
	return nil
}

func (f *fake) Background() {
	*f.calls = append(*f.calls, "bg "+f.name)
}

func (f *fake) Shutdown() error {
	*f.calls = append(*f.calls, "stop "+f.name)
	return nil
}

func TestLifecycleOrder(t *testing.T) {
	var calls []string
	r := NewRegistry()
	r.Register("a", &fake{name: "a", calls: &calls})
	r.Register("b", &fake{name: "b", calls: &calls})
	r.Register("a", &fake{name: "dup", calls: &calls})

	require.NoError(t, r.Startup())
	r.Background()
	r.Shutdown()
	r.Shutdown()

	assert.Equal(t, []string{"start a", "start b", "bg a", "bg b", "stop b", "stop a"}, calls)
}

func TestStartupFailureUnwinds(t *testing.T) {
	var calls []string
	r := NewRegistry()
	r.Register("a", &fake{name: "a", calls: &calls})
	r.Register("b", &fake{name: "b", failing: true, calls: &calls})
	r.Register("c", &fake{name: "c", calls: &calls})

	err := r.Startup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: boom")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, calls)
}

func TestGet(t *testing.T) {
	var calls []string
	r := NewRegistry()
	r.Register("a", &fake{name: "a", calls: &calls})

	_, ok := r.Get("a")
	assert.True(t, ok)
	_, ok = r.Get("z")
	assert.False(t, ok)
}
