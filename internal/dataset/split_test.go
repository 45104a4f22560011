package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(n int) *Table {
	t := NewTable("wheel_id", "mileage_start", ColWearIntensity)
	for i := 0; i < n; i++ {
		t.Append([]string{"w" + strconv.Itoa(i), strconv.Itoa(i * 100), strconv.FormatFloat(float64(i)/10, 'f', -1, 64)})
	}
	return t
}

func TestSplitPartitions(t *testing.T) {
	input := sampleTable(101)
	input.Append(input.Rows[0])
	input.Append(input.Rows[5])

	res, err := Split(input, ColWearIntensity, DefaultSplitConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 101, res.Train.Len()+res.Test.Len())
	assert.Equal(t, 21, res.Test.Len())

	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), res.TrainIndex...), res.TestIndex...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 101)

	xs := res.Features(res.Train)
	ys := res.Targets(res.Train)
	assert.False(t, xs.HasColumn(ColWearIntensity))
	require.Equal(t, xs.Len(), ys.Len())
	for i := range xs.Rows {
		assert.Equal(t, res.Train.Value(i, "wheel_id"), xs.Value(i, "wheel_id"))
		assert.Equal(t, res.Train.Value(i, ColWearIntensity), ys.Value(i, ColWearIntensity))
	}
}

func TestSplitIsReproducible(t *testing.T) {
	render := func() []byte {
		res, err := Split(sampleTable(50), ColWearIntensity, DefaultSplitConfig())
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteTableTo(&buf, res.Train))
		require.NoError(t, WriteTableTo(&buf, res.Test))
		return buf.Bytes()
	}

	assert.Equal(t, render(), render())

	other, err := Split(sampleTable(50), ColWearIntensity, SplitConfig{TestFraction: 0.2, Seed: 7})
	require.NoError(t, err)
	first, err := Split(sampleTable(50), ColWearIntensity, DefaultSplitConfig())
	require.NoError(t, err)
	assert.NotEqual(t, first.TestIndex, other.TestIndex)
}

func TestSplitErrors(t *testing.T) {
	_, err := Split(sampleTable(10), "missing", DefaultSplitConfig())
	assert.ErrorIs(t, err, ErrMissingTarget)

	_, err = Split(NewTable("a", ColWearIntensity), ColWearIntensity, DefaultSplitConfig())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Split(sampleTable(10), ColWearIntensity, SplitConfig{TestFraction: 1.5})
	assert.Error(t, err)
}

func TestSplitWrite(t *testing.T) {
	res, err := Split(sampleTable(20), ColWearIntensity, DefaultSplitConfig())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, res.Write(dir))

	for _, name := range []string{TrainFile, TestFile, XTrainFile, XTestFile, YTrainFile, YTestFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	y, err := ReadTable(filepath.Join(dir, YTestFile))
	require.NoError(t, err)
	assert.Equal(t, []string{ColWearIntensity}, y.Columns)
	assert.Equal(t, res.Test.Len(), y.Len())

	mean, std := res.TargetStats(res.Train)
	assert.Greater(t, mean, 0.0)
	assert.Greater(t, std, 0.0)
}
