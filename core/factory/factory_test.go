package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	Addr  string
	Flush time.Duration
}

type sinkConf struct {
	Addr  string        `json:"addr"`
	Flush time.Duration `json:"flush"`
	Batch int           `json:"batch"`
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("influx", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{Addr: c.Addr, Flush: c.Flush}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "influx", Conf: map[string]any{"addr": "http://db:8086", "flush": "2s"}})
	require.NoError(t, err)
	assert.Equal(t, "http://db:8086", inst.Addr)
	assert.Equal(t, 2*time.Second, inst.Flush)
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("y", nil))
	assert.Error(t, reg.Register("", func(map[string]any) (int, error) { return 3, nil }))
	_, err := reg.Create(ModuleConfig{Type: "missing"})
	assert.ErrorContains(t, err, `"missing"`)
	assert.ErrorContains(t, err, "[x]")
	assert.Equal(t, []string{"x"}, reg.Types())
}

func TestDecodeWeakTypes(t *testing.T) {
	var c sinkConf
	require.NoError(t, Decode(map[string]any{"batch": "25"}, &c))
	assert.Equal(t, 25, c.Batch)
}

func TestCreatePassesEmptyConf(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("len", func(conf map[string]any) (int, error) {
		require.NotNil(t, conf)
		return len(conf), nil
	}))
	n, err := reg.Create(ModuleConfig{Type: "len"})
	require.NoError(t, err)
	assert.Zero(t, n)
}
