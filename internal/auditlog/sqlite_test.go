package auditlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-scanmatch/internal/correlate"
)

func TestAppendAndRecent(t *testing.T) {
	sink, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	ts := time.Date(2024, 5, 17, 9, 30, 5, 0, time.Local)
	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, correlate.Entry{ID: "a", SourceAddress: "10.0.0.1", Message: "AB1234567890123", Timestamp: ts, Status: "Barcode Scanned"}))
	require.NoError(t, sink.Append(ctx, correlate.Entry{ID: "b", SourceAddress: "10.0.0.2", Message: "xxAB1234567890123yy", Timestamp: ts, Status: "Success"}))

	records, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "b", records[0].ID)
	require.Equal(t, "Success", records[0].Status)
	require.Equal(t, "10.0.0.1", records[1].SourceAddress)
	require.Equal(t, "2024-05-17 09:30:05", records[1].LoggedAt)

	limited, err := sink.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestOpenCreatesFileAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scan_log.db")

	sink, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), correlate.Entry{ID: "a", SourceAddress: "10.0.0.1", Message: "m", Timestamp: time.Now(), Status: "Bad Scan"}))
	require.NoError(t, sink.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.Equal(t, path, reopened.Path())

	records, err := reopened.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Bad Scan", records[0].Status)
}
