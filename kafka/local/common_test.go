package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/test"
	"github.com/stretchr/testify/require"
	"time"
)

var testTime = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	group  *parallel.Group
	dir    string
	client api.ClientBackdate
}

func setupTest(t *testing.T) *testEnv {
	dir := t.TempDir()
	client, err := New(dir)
	require.NoError(t, err)

	return &testEnv{
		group:  test.Group(t),
		dir:    dir,
		client: client,
	}
}

// appendLines writes raw lines to the topic file, bypassing the client so
// that tests control headers and can produce malformed files
func (env *testEnv) appendLines(topic string, lines ...string) {
	f := must.OK1(os.OpenFile(filepath.Join(env.dir, topic), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644))
	defer must.Do(f.Close)
	for _, l := range lines {
		must.OK1(f.WriteString(l + "\n"))
	}
}
