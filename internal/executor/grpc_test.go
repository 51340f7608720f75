package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/pkg/api"
)

func TestRawCodecPassthrough(t *testing.T) {
	codec := rawCodec{}
	assert.Equal(t, "json", codec.Name())

	payload := []byte(`{"id": 7}`)

	data, err := codec.Marshal(payload)
	assert.NoError(t, err)
	assert.Equal(t, payload, data)

	data, err = codec.Marshal(&payload)
	assert.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = codec.Marshal("not bytes")
	assert.Error(t, err)

	var out []byte
	assert.NoError(t, codec.Unmarshal(payload, &out))
	assert.Equal(t, payload, out)

	assert.Error(t, codec.Unmarshal(payload, &struct{}{}))
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t,
		"/users.UserService/GetUser",
		fullMethod("users.UserService/GetUser"))
	assert.Equal(t,
		"/users.UserService/GetUser",
		fullMethod("/users.UserService/GetUser"))
}

func TestCallMetadata(t *testing.T) {
	req := &api.Request{
		GRPC: &api.GRPCConfig{
			Target:   "localhost:50051",
			Method:   "users.UserService/GetUser",
			Metadata: map[string]string{"x-trace": "abc"},
		},
	}

	md := callMetadata(req, &api.Credentials{
		Type:  api.CredentialBearer,
		Token: "tok-123",
	})
	assert.Equal(t, []string{"abc"}, md.Get("x-trace"))
	assert.Equal(t, []string{"Bearer tok-123"}, md.Get("authorization"))

	md = callMetadata(req, &api.Credentials{
		Type:   api.CredentialAPIKey,
		Header: "x-custom",
		Value:  "secret",
	})
	assert.Equal(t, []string{"secret"}, md.Get("x-custom"))

	md = callMetadata(req, nil)
	assert.Empty(t, md.Get("authorization"))
}

func TestGRPCConnCaching(t *testing.T) {
	exec := NewGRPCExecutor(Config{})
	defer func() { _ = exec.Close() }()

	// Dialing is lazy; no server needs to be listening
	first, err := exec.conn("localhost:50051")
	assert.NoError(t, err)

	second, err := exec.conn("localhost:50051")
	assert.NoError(t, err)
	assert.Same(t, first, second)

	other, err := exec.conn("localhost:50052")
	assert.NoError(t, err)
	assert.NotSame(t, first, other)

	assert.NoError(t, exec.Close())
}
