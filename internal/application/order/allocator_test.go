package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedIDs replays ids in order, repeating the last one when exhausted.
type scriptedIDs struct {
	ids   []string
	calls int
}

func (s *scriptedIDs) NewID() string {
	i := s.calls
	if i >= len(s.ids) {
		i = len(s.ids) - 1
	}
	s.calls++
	return s.ids[i]
}

func takenSet(ids ...string) func(context.Context, string) bool {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(_ context.Context, id string) bool {
		_, ok := set[id]
		return ok
	}
}

func TestIDAllocator_Allocate(t *testing.T) {
	tests := []struct {
		name      string
		ids       []string
		taken     []string
		max       int
		want      string
		wantCalls int
		wantErr   error
	}{
		{name: "first id free", ids: []string{"a"}, want: "a", wantCalls: 1},
		{name: "retries past collisions", ids: []string{"a", "b", "c"}, taken: []string{"a", "b"}, want: "c", wantCalls: 3},
		{name: "exhausted", ids: []string{"a"}, taken: []string{"a"}, max: 3, wantCalls: 3, wantErr: ErrAllocationExhausted},
		{name: "default bound", ids: []string{"a"}, taken: []string{"a"}, wantCalls: DefaultMaxAttempts, wantErr: ErrAllocationExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedIDs{ids: tt.ids}
			got, err := NewIDAllocator(gen, tt.max).Allocate(context.Background(), takenSet(tt.taken...))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, gen.calls)
		})
	}
}

func TestIDAllocator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIDAllocator(&scriptedIDs{ids: []string{"a"}}, 0).Allocate(ctx, takenSet())
	assert.ErrorIs(t, err, context.Canceled)
}
