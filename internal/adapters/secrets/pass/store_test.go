package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "chatkit/openai_api_key"}, args)
			assert.Equal(t, "sk-test\n", input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Put(context.Background(), "chatkit/openai_api_key", "sk-test"))
	assert.True(t, called)
}

func TestStoreGetReturnsFirstLineOnly(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "chatkit/openai_api_key"}, args)
			assert.Empty(t, input)
			return "sk-test\nowner: platform-team\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "chatkit/openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)
}

func TestStoreGetMapsMissingEntryToNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: chatkit/openai_api_key is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "chatkit/openai_api_key")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), "chatkit/openai_api_key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "gpg: decryption failed")
}

func TestStoreDeleteIgnoresMissingEntry(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "chatkit/openai_api_key"}, args)
			return "", "Error: chatkit/openai_api_key is not in the password store.", errors.New("exit status 1")
		},
	}

	require.NoError(t, store.Delete(context.Background(), "chatkit/openai_api_key"))
}

func TestStoreHonoursCanceledContext(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			t.Fatal("pass should not run with a canceled context")
			return "", "", nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "chatkit/openai_api_key")
	require.ErrorIs(t, err, context.Canceled)
}
