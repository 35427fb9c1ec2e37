package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/client/iocli"
	"github.com/iudanet/matsync/internal/validation"
)

func passwordIO(answers ...string) *iocli.IOMock {
	return &iocli.IOMock{
		ReadPasswordFunc: func(prompt string) (string, error) {
			if len(answers) == 0 {
				return "", errors.New("no more input")
			}
			next := answers[0]
			answers = answers[1:]
			return next, nil
		},
	}
}

func TestReadPassphrase(t *testing.T) {
	tests := []struct {
		name      string
		answers   []string
		confirm   bool
		want      string
		wantErr   error
		wantCalls int
	}{
		{
			name:      "import does not confirm",
			answers:   []string{"short"},
			want:      "short",
			wantCalls: 1,
		},
		{
			name:      "export confirmed",
			answers:   []string{"correct horse battery", "correct horse battery"},
			confirm:   true,
			want:      "correct horse battery",
			wantCalls: 2,
		},
		{
			name:      "export too short",
			answers:   []string{"short"},
			confirm:   true,
			wantErr:   validation.ErrInvalid,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := passwordIO(tt.answers...)
			c := New(mock, BuildInfo{})

			got, err := c.readPassphrase(tt.confirm)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Len(t, mock.ReadPasswordCalls(), tt.wantCalls)
		})
	}
}

func TestReadPassphrase_Env(t *testing.T) {
	t.Setenv(PassphraseEnv, "from the environment")
	mock := passwordIO()

	got, err := New(mock, BuildInfo{}).readPassphrase(true)
	require.NoError(t, err)
	assert.Equal(t, "from the environment", got)
	assert.Empty(t, mock.ReadPasswordCalls(), "terminal is not touched")
}
