package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/voxbridge/internal/config"
)

type fakeAPI struct {
	values map[string]string
	err    error
	calls  int
	input  *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[*in.Name]
	if !ok {
		return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name}}, nil
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: &v}}, nil
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestGetParameter_DecryptsAndCaches(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"/voxbridge/openai": "sk-123"}}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), " /voxbridge/openai ")
	require.NoError(t, err)
	require.Equal(t, "sk-123", v)
	require.True(t, *api.input.WithDecryption)

	v, err = c.GetParameter(context.Background(), "/voxbridge/openai")
	require.NoError(t, err)
	require.Equal(t, "sk-123", v)
	require.Equal(t, 1, api.calls)
}

func TestGetParameter_Errors(t *testing.T) {
	c, err := New(&fakeAPI{err: errors.New("access denied")})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/p")
	require.ErrorContains(t, err, "access denied")

	c, err = New(&fakeAPI{})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/missing")
	require.ErrorContains(t, err, "no value")

	_, err = c.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = (&Client{}).GetParameter(context.Background(), "/p")
	require.ErrorContains(t, err, "not initialized")
}

func TestClientResolvesConfigSecrets(t *testing.T) {
	api := &fakeAPI{values: map[string]string{
		"/voxbridge/openai":     "sk-123\n",
		"/voxbridge/elevenlabs": "xi-456",
	}}
	c, err := New(api)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LLM.APIKey = "ssm:/voxbridge/openai"
	cfg.TTS.ElevenLabs.APIKey = "ssm:/voxbridge/elevenlabs"
	cfg.Proxy.AppKey = "plain"
	require.True(t, cfg.HasSecretRefs())

	require.NoError(t, cfg.ResolveSecrets(context.Background(), c))
	require.Equal(t, "sk-123", cfg.LLM.APIKey)
	require.Equal(t, "xi-456", cfg.TTS.ElevenLabs.APIKey)
	require.Equal(t, "plain", cfg.Proxy.AppKey)
	require.False(t, cfg.HasSecretRefs())
}
