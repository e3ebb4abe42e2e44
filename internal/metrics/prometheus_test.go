package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/pkg/pgload"
)

func TestPrometheusReporter_RecordBatchExecution(t *testing.T) {
	r := NewPrometheusReporter("warehouse")

	r.RecordBatchExecution("sales.orders", 10000, 120*time.Millisecond, pgload.StatusSuccess)
	r.RecordBatchExecution("sales.orders", 5000, 80*time.Millisecond, pgload.StatusSuccess)
	r.RecordBatchExecution("sales.orders", 5000, 10*time.Millisecond, pgload.StatusFailure)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.batchTotal.WithLabelValues("sales.orders", pgload.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.batchTotal.WithLabelValues("sales.orders", pgload.StatusFailure)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.batchDuration))
}

func TestPrometheusReporter_RecordWrite(t *testing.T) {
	r := NewPrometheusReporter("")

	r.RecordWrite(pgload.OperationUpsert, "t", 25000, pgload.StatusSuccess)
	r.RecordWrite(pgload.OperationUpsert, "t", 100, pgload.StatusFailure)
	r.RecordWrite(pgload.OperationUpsert, "t", 5, pgload.StatusSuccess)

	assert.Equal(t, 25005.0, testutil.ToFloat64(r.rowsWritten.WithLabelValues(pgload.OperationUpsert, "t", pgload.StatusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.writesTotal.WithLabelValues(pgload.OperationUpsert, "t", pgload.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.writesTotal.WithLabelValues(pgload.OperationUpsert, "t", pgload.StatusFailure)))
}

func TestPrometheusReporter_WriteTextfile(t *testing.T) {
	r := NewPrometheusReporter("warehouse")
	r.RecordWrite(pgload.OperationInsert, "stage.raw", 3, pgload.StatusSuccess)

	path := filepath.Join(t.TempDir(), "pgload.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "pgload_writes_total")
	if !strings.Contains(text, `database="warehouse"`) {
		t.Errorf("textfile missing database label:\n%s", text)
	}
}

func TestPrometheusReporter_WriteTextfile_BadDir(t *testing.T) {
	r := NewPrometheusReporter("")
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
