package publish

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/apkship/internal/drive"
	"github.com/teemow/apkship/internal/drive/drivetest"
)

const apkMime = "application/vnd.android.package-archive"

type fakeAuthorizer struct {
	client *http.Client
	err    error
	calls  atomic.Int32
}

func (a *fakeAuthorizer) Authorize(context.Context) (*http.Client, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	return a.client, nil
}

type testEnv struct {
	srv       *drivetest.Server
	auth      *fakeAuthorizer
	out       *bytes.Buffer
	publisher *Publisher
	artifact  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := drivetest.NewServer()
	t.Cleanup(srv.Close)

	env := &testEnv{
		srv:      srv,
		auth:     &fakeAuthorizer{client: srv.Client()},
		out:      &bytes.Buffer{},
		artifact: filepath.Join(t.TempDir(), "app-release.apk"),
	}
	env.publisher = NewPublisher(Config{
		Authorizer: env.auth,
		NewDrive: func(ctx context.Context, httpClient *http.Client) (Drive, error) {
			return drive.NewClient(ctx, httpClient, drive.WithEndpoint(srv.URL()))
		},
		FolderName: "shared-app",
		FileName:   "androidapp.apk",
		MimeType:   apkMime,
		Output:     env.out,
	})
	return env
}

func (e *testEnv) uploadCount() int {
	return e.srv.Count(http.MethodPost, "/upload/drive/v3/files")
}

func TestPublish_CreatesFolderAndFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.artifact, []byte("apk-v1"), 0644))

	result, err := env.publisher.Publish(context.Background(), env.artifact)
	require.NoError(t, err)
	assert.False(t, result.Replaced)
	assert.Equal(t, int32(1), env.auth.calls.Load())

	f, ok := env.srv.File(result.ID)
	require.True(t, ok)
	assert.Equal(t, "androidapp.apk", f.Name)
	assert.Equal(t, []byte("apk-v1"), f.Content)
	require.Len(t, f.Parents, 1)

	folder, ok := env.srv.File(f.Parents[0])
	require.True(t, ok)
	assert.Equal(t, "shared-app", folder.Name)

	assert.Contains(t, env.out.String(), "Uploaded androidapp.apk in shared-app")
	assert.Contains(t, env.out.String(), result.WebViewLink)
	assert.Contains(t, env.out.String(), result.WebContentLink)
}

func TestPublish_ReplacesOnSecondRun(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.artifact, []byte("apk-v1"), 0644))

	first, err := env.publisher.Publish(context.Background(), env.artifact)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(env.artifact, []byte("apk-v2"), 0644))
	second, err := env.publisher.Publish(context.Background(), env.artifact)
	require.NoError(t, err)

	assert.True(t, second.Replaced)
	assert.Equal(t, first.ID, second.ID, "replacing keeps the file ID")
	assert.Equal(t, 1, env.uploadCount())
	assert.Equal(t, 1, env.srv.Count(http.MethodPost, "/files"), "folder created once")

	f, _ := env.srv.File(first.ID)
	assert.Equal(t, []byte("apk-v2"), f.Content)
	assert.Contains(t, env.out.String(), "Replaced androidapp.apk in shared-app")
}

func TestPublish_Errors(t *testing.T) {
	t.Run("authorize fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.err = errors.New("consent denied")
		require.NoError(t, os.WriteFile(env.artifact, []byte("apk"), 0644))

		_, err := env.publisher.Publish(context.Background(), env.artifact)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to authorize")
		assert.Empty(t, env.srv.Requests())
	})

	t.Run("artifact missing", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.publisher.Publish(context.Background(), env.artifact)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open artifact")
		assert.Equal(t, 0, env.uploadCount())
	})

	t.Run("folder lookup fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.srv.FailOn(http.MethodGet, "/files", http.StatusForbidden)
		require.NoError(t, os.WriteFile(env.artifact, []byte("apk"), 0644))

		_, err := env.publisher.Publish(context.Background(), env.artifact)
		require.Error(t, err)
		assert.Equal(t, 0, env.uploadCount())
		assert.Empty(t, env.out.String())
	})

	t.Run("drive client fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.publisher.newDrive = func(context.Context, *http.Client) (Drive, error) {
			return nil, errors.New("no service")
		}
		require.NoError(t, os.WriteFile(env.artifact, []byte("apk"), 0644))

		_, err := env.publisher.Publish(context.Background(), env.artifact)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create Drive client")
	})

	t.Run("no authorizer", func(t *testing.T) {
		_, err := NewPublisher(Config{}).Publish(context.Background(), "x")
		require.Error(t, err)
	})
}
