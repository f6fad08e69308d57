package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		edges    []Edge
		expected []Edge
		err      error
	}{
		{
			name:     "independent edges keep declaration order",
			edges:    []Edge{Move("parked", "idling"), Move("stalled", "stalled")},
			expected: []Edge{Move("parked", "idling"), Move("stalled", "stalled")},
		},
		{
			name:     "chain runs from its end",
			edges:    []Edge{Move("a", "b"), Move("b", "c"), Move("c", "d")},
			expected: []Edge{Move("c", "d"), Move("b", "c"), Move("a", "b")},
		},
		{
			name:     "wildcard skipped",
			edges:    []Edge{Move(Wildcard, "parked"), Move("idling", "parked")},
			expected: []Edge{Move("idling", "parked")},
		},
		{
			name:  "cycle",
			edges: []Edge{Move("a", "b"), Move("b", "c"), Move("c", "a")},
			err:   ErrCyclicBulkTransition,
		},
		{
			name:     "empty",
			expected: []Edge{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := bulkOrder(tt.edges)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
