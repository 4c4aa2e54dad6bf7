// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

func setup(t *testing.T) (*Store, func()) {
	t.Helper()
	require := require.New(t)

	dir, err := ioutil.TempDir("", "cagg-store")
	require.NoError(err)

	s, err := Open(dir)
	require.NoError(err)

	return s, func() {
		require.NoError(s.Close())
		require.NoError(os.RemoveAll(dir))
	}
}

func record(name string, jobID int32) *plan.ContinuousAggRecord {
	return &plan.ContinuousAggRecord{
		MatHypertableID:   2,
		RawHypertableID:   1,
		UserViewSchema:    "public",
		UserViewName:      name,
		PartialViewSchema: "_timescaledb_internal",
		PartialViewName:   "_partial_view_2",
		BucketWidth:       3600000000,
		JobID:             jobID,
		RefreshLag:        7200000000,
		UserViewQuery:     "SELECT time_bucket('1 hour', timec), avg(temperature) FROM conditions GROUP BY 1",
		Fingerprint:       42,
	}
}

func TestStore(t *testing.T) {
	require := require.New(t)
	s, cleanup := setup(t)
	defer cleanup()

	hourly := record("hourly", 1000)
	daily := record("daily", 1001)
	require.NoError(s.Put(hourly))
	require.NoError(s.Put(daily))

	rec, err := s.Get("public", "hourly")
	require.NoError(err)
	require.Equal(hourly, rec)

	recs, err := s.List()
	require.NoError(err)
	require.Equal([]*plan.ContinuousAggRecord{daily, hourly}, recs)

	require.NoError(s.Delete("public", "daily"))
	_, err = s.Get("public", "daily")
	require.True(ErrRecordNotFound.Is(err))
	require.True(ErrRecordNotFound.Is(s.Delete("public", "daily")))

	recs, err = s.List()
	require.NoError(err)
	require.Len(recs, 1)
}

func TestStorePutReplaces(t *testing.T) {
	require := require.New(t)
	s, cleanup := setup(t)
	defer cleanup()

	require.NoError(s.Put(record("hourly", 1000)))
	require.NoError(s.Put(record("hourly", 1005)))

	rec, err := s.Get("public", "hourly")
	require.NoError(err)
	require.Equal(int32(1005), rec.JobID)
}

func TestStoreReopen(t *testing.T) {
	require := require.New(t)

	dir, err := ioutil.TempDir("", "cagg-store")
	require.NoError(err)
	defer os.RemoveAll(dir)

	s, err := Open(dir)
	require.NoError(err)
	require.Equal(filepath.Join(dir, FileName), s.Path())
	require.NoError(s.Put(record("hourly", 1000)))
	require.NoError(s.Close())
	require.NoError(s.Close())

	_, err = s.Get("public", "hourly")
	require.True(ErrStoreClosed.Is(err))

	s, err = Open(dir)
	require.NoError(err)
	defer s.Close()

	rec, err := s.Get("public", "hourly")
	require.NoError(err)
	require.Equal(record("hourly", 1000), rec)
}

func TestStoreCorruptRecord(t *testing.T) {
	require := require.New(t)
	s, cleanup := setup(t)
	defer cleanup()

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Put([]byte("public.broken"), []byte("nope"))
	})
	require.NoError(err)

	_, err = s.Get("public", "broken")
	require.True(ErrCorruptRecord.Is(err))

	_, err = s.List()
	require.True(ErrCorruptRecord.Is(err))
}
