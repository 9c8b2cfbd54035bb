package davclient

import (
	"testing"

	"github.com/cyp0633/davtasks/internal/davtest"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "alice"
	testPassword = "correct horse"
)

type fakeServer = davtest.Server

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	srv := davtest.NewServer(testUser, testPassword)
	t.Cleanup(srv.Close)
	return srv
}

func testCredential(srv *fakeServer, path string) Credential {
	return Credential{
		BaseURL:  srv.URL + path,
		Username: testUser,
		Password: testPassword,
	}
}

func newTestClient(t *testing.T, srv *fakeServer, path string) *Client {
	t.Helper()
	c, err := NewClient(testCredential(srv, path), Options{})
	require.NoError(t, err)
	return c
}

// paths returns the distinct request paths seen for method, in order.
func paths(srv *fakeServer, method string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range srv.Requests() {
		if r.Method != method || seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		out = append(out, r.Path)
	}
	return out
}
