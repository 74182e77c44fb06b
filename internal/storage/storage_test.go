package storage

import (
	"errors"
	"os"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRemoveRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "uploads/")

	url, err := store.Save(DirProperties, "a.jpg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/properties/a.jpg", url)

	ok, err := store.Exists(url)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := afero.ReadFile(fs, "properties/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.NoError(t, store.Remove(url))
	ok, err = store.Exists(url)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Remove(url), "second remove reports the missing file")
}

func TestRemoveRejectsForeignURLs(t *testing.T) {
	store := New(afero.NewMemMapFs(), "/uploads")

	for _, u := range []string{"/properties/p1.jpg", "/uploads/../etc/passwd", "https://cdn.example/x.jpg"} {
		err := store.Remove(u)
		assert.True(t, errors.Is(err, ErrOutsideStore), u)
	}
}

func TestWalk(t *testing.T) {
	store := New(afero.NewMemMapFs(), "/uploads")
	_, err := store.Save(DirProperties, "one.jpg", []byte("1"))
	require.NoError(t, err)
	_, err = store.Save(DirPlans, "plan.pdf", []byte("2"))
	require.NoError(t, err)

	var seen []string
	require.NoError(t, store.Walk(DirProperties, func(url string, _ os.FileInfo) error {
		seen = append(seen, url)
		return nil
	}))
	sort.Strings(seen)
	assert.Equal(t, []string{"/uploads/properties/one.jpg"}, seen)

	require.NoError(t, store.Walk("missing", func(string, os.FileInfo) error {
		t.Fatal("no files expected")
		return nil
	}))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "villa-front-view.jpg", SafeName("Villa Front View.JPG"))
	assert.Equal(t, "passwd", SafeName("../../etc/passwd"))
	assert.Equal(t, "plan.pdf", SafeName(`C:\Users\me\Plan.pdf`))
	assert.Equal(t, "file", SafeName("   "))
	assert.Equal(t, "env", SafeName(".env"))
}
