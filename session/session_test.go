package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/trackevent/category"
	"github.com/tracekit/trackevent/wire"
)

type recordingObserver struct {
	BaseObserver
	setups []SetupArgs
	starts int
	stops  int
	clears int
}

func (o *recordingObserver) OnSetup(args SetupArgs)                { o.setups = append(o.setups, args) }
func (o *recordingObserver) OnStart(StartArgs)                     { o.starts++ }
func (o *recordingObserver) OnStop(StopArgs)                       { o.stops++ }
func (o *recordingObserver) WillClearIncrementalState(ClearArgs)   { o.clears++ }

func newTestCoordinator() (*Coordinator, *category.Registry) {
	c := NewCoordinator(nil)
	r := category.NewRegistry(
		category.Category{Name: "app"},
		category.Category{Name: "io", Tags: []string{"slow"}},
	)
	c.AddRegistry(r)
	return c, r
}

func TestEnableTracingSetsBits(t *testing.T) {
	c, r := newTestCoordinator()

	id := c.EnableTracing(category.DefaultConfig(), 0)
	assert.True(t, strings.HasPrefix(id, "sess_"))
	assert.True(t, r.Enabled(0, 0))
	assert.False(t, r.Enabled(1, 0), "slow tag is off by default")

	// A second instance with its own filter does not disturb the first.
	c.EnableTracing(&category.TraceConfig{EnabledCategories: []string{"io"}}, 1)
	assert.True(t, r.Enabled(0, 0))
	assert.True(t, r.Enabled(1, 1))

	c.DisableTracing(0)
	assert.False(t, r.Enabled(0, 0))
	assert.True(t, r.Enabled(1, 1))

	// Session ids are unique per setup.
	id2 := c.EnableTracing(category.DefaultConfig(), 0)
	assert.NotEqual(t, id, id2)
}

func TestObserverFanOut(t *testing.T) {
	c, r := newTestCoordinator()
	obs := &recordingObserver{}
	c.AddSessionObserver(r, obs)

	cfg := category.DefaultConfig()
	id := c.EnableTracing(cfg, 2)
	require.Len(t, obs.setups, 1)
	assert.Equal(t, id, obs.setups[0].SessionID)
	assert.Equal(t, uint32(2), obs.setups[0].Instance)
	assert.Same(t, cfg, obs.setups[0].Config)

	c.OnStart(StartArgs{Instance: 2})
	c.OnStop(StopArgs{Instance: 2})
	c.WillClearIncrementalState(ClearArgs{Instance: 2})
	assert.Equal(t, 1, obs.starts)
	assert.Equal(t, 1, obs.stops)
	assert.Equal(t, 1, obs.clears)

	c.RemoveSessionObserver(r, obs)
	c.OnStart(StartArgs{Instance: 2})
	assert.Equal(t, 1, obs.starts)
}

// reentrantObserver calls back into the coordinator from inside a callback,
// which must not deadlock.
type reentrantObserver struct {
	BaseObserver
	coord *Coordinator
}

func (o *reentrantObserver) OnStart(StartArgs) {
	o.coord.AddRegistry(category.NewRegistry(category.Category{Name: "late"}))
}

func TestObserverMayReenterCoordinator(t *testing.T) {
	c, r := newTestCoordinator()
	c.AddSessionObserver(r, &reentrantObserver{coord: c})

	c.OnStart(StartArgs{})
	assert.Len(t, c.GetRegistries(), 2)
}

func TestSessionCountIsMonotonic(t *testing.T) {
	c, _ := newTestCoordinator()
	assert.Equal(t, uint64(0), c.SessionCount())

	c.OnStart(StartArgs{Instance: 0})
	c.OnStart(StartArgs{Instance: 1})
	assert.Equal(t, uint64(2), c.SessionCount())

	// Stopping never decrements: the counter means sessions ever started.
	c.OnStop(StopArgs{Instance: 0})
	c.OnStop(StopArgs{Instance: 1})
	assert.Equal(t, uint64(2), c.SessionCount())
}

func TestInitializeBuildsDescriptor(t *testing.T) {
	c := NewCoordinator(nil)
	c.AddRegistry(category.NewRegistry(
		category.Category{Name: "app", Description: "application"},
		category.Category{Name: "io", Tags: []string{"slow", "disk"}},
		category.Category{Name: "app,io", Group: true},
	))

	var gotName string
	var gotDesc []byte
	err := c.Initialize("track_event", func(name string, desc []byte) bool {
		gotName = name
		gotDesc = desc
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, "track_event", gotName)

	name, ok := wire.String(gotDesc, wire.FieldDescriptorName)
	require.True(t, ok)
	assert.Equal(t, "track_event", name)

	te := wire.Bytes(gotDesc, wire.FieldDescriptorTrackEvent)
	require.Len(t, te, 1)
	cats := wire.Bytes(te[0], wire.FieldDescriptorCategories)
	// Groups are not enumerated.
	require.Len(t, cats, 2)

	n, ok := wire.String(cats[0], wire.FieldCategoryName)
	require.True(t, ok)
	assert.Equal(t, "app", n)
	d, ok := wire.String(cats[0], wire.FieldCategoryDescription)
	require.True(t, ok)
	assert.Equal(t, "application", d)

	n, ok = wire.String(cats[1], wire.FieldCategoryName)
	require.True(t, ok)
	assert.Equal(t, "io", n)
}

func TestInitializeRejectsNestedGroups(t *testing.T) {
	c := NewCoordinator(nil)
	c.AddRegistry(category.NewRegistry(
		category.Category{Name: "b"},
		category.Category{Name: "b", Group: true},
		category.Category{Name: "a,b", Group: true},
	))

	called := false
	err := c.Initialize("track_event", func(string, []byte) bool {
		called = true
		return true
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestResetForTesting(t *testing.T) {
	c, r := newTestCoordinator()
	c.AddSessionObserver(r, &recordingObserver{})
	c.OnStart(StartArgs{})

	c.ResetForTesting()
	assert.Empty(t, c.GetRegistries())
	assert.Equal(t, uint64(0), c.SessionCount())
}
