package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLabelBuilder(t *testing.T) {
	t.Parallel()
	got := NewLabelBuilder("prod").Build()

	assert.Equal(t, "prod", got[KeyEnvironment])
	assert.Equal(t, ManagedByTradefleet, got[KeyManagedBy])
	assert.Len(t, got, 2)
}

func TestLabelBuilder_WithInstanceAndRun(t *testing.T) {
	t.Parallel()
	got := NewLabelBuilder("prod").
		WithInstance("collector-1").
		WithRunIfSet("run-1").
		Build()

	assert.Equal(t, "collector-1", got[KeyInstance])
	assert.Equal(t, "run-1", got[KeyRun])
}

func TestLabelBuilder_WithRunIfSet_Empty(t *testing.T) {
	t.Parallel()
	got := NewLabelBuilder("prod").WithRunIfSet("").Build()

	_, ok := got[KeyRun]
	assert.False(t, ok)
}

func TestLabelBuilder_MergeOrderAndReservedKeys(t *testing.T) {
	t.Parallel()
	global := map[string]string{"team": "quant", "tier": "shared"}
	instance := map[string]string{"tier": "hot", KeyEnvironment: "hijack"}

	got := NewLabelBuilder("prod").Merge(global, instance).Build()

	assert.Equal(t, "quant", got["team"])
	assert.Equal(t, "hot", got["tier"], "later maps override earlier ones")
	assert.Equal(t, "prod", got[KeyEnvironment], "reserved keys are never overwritten")
}

func TestLabelBuilder_BuildReturnsCopy(t *testing.T) {
	t.Parallel()
	lb := NewLabelBuilder("prod")
	first := lb.Build()
	first["mutated"] = "yes"

	_, ok := lb.Build()["mutated"]
	assert.False(t, ok)
}

func TestSelectors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "tradefleet.io/environment=prod", SelectorForEnvironment("prod"))
	assert.Equal(t, "a=1,b=2", Selector(map[string]string{"b": "2", "a": "1"}))
	assert.Equal(t, "", Selector(nil))
}
