package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aushadhi/m/domain"
	"aushadhi/m/internal/database"
	"aushadhi/m/internal/importer"
	"aushadhi/m/internal/migrations"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return New(db)
}

func record(batchID, name string, price float64, qty int64) importer.Record {
	return importer.Record{BatchID: batchID, Name: name, Price: price, Quantity: qty}
}

func TestMergeImport_NewAndUpdated(t *testing.T) {
	s := testStore(t)

	first, err := s.MergeImport(1, []importer.Record{
		record("B-1", "Paracetamol", 12.5, 40),
		record("B-2", "Cetirizine", 8, 25),
	}, "imp-1", "stock.xlsx")
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Total: 2, New: 2, Updated: 0}, first)

	// Second file overlaps on B-2 and brings one new batch.
	second, err := s.MergeImport(1, []importer.Record{
		record("B-2", "Cetirizine 10mg", 9, 30),
		record("B-3", "Azithromycin", 95, 12),
	}, "imp-2", "restock.xlsx")
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Total: 2, New: 1, Updated: 1}, second)

	medicines, err := s.Search(1, "")
	require.NoError(t, err)
	require.Len(t, medicines, 3)

	byBatch := map[string]domain.Medicine{}
	for _, m := range medicines {
		byBatch[m.BatchID] = m
	}
	assert.Equal(t, "Cetirizine 10mg", byBatch["B-2"].Name)
	assert.Equal(t, int64(30), byBatch["B-2"].Quantity)
	assert.Equal(t, domain.ImportStatusUpdated, byBatch["B-2"].ImportStatus)
	assert.Equal(t, "imp-2", byBatch["B-2"].ImportID)
	assert.Equal(t, domain.ImportStatusNew, byBatch["B-1"].ImportStatus)
}

func TestMergeImport_ScopedByUser(t *testing.T) {
	s := testStore(t)

	_, err := s.MergeImport(1, []importer.Record{record("B-1", "Paracetamol", 12.5, 40)}, "imp-1", "a.csv")
	require.NoError(t, err)

	// Same batch id for a different user is an insert, not an update.
	summary, err := s.MergeImport(2, []importer.Record{record("B-1", "Paracetamol", 15, 10)}, "imp-2", "b.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.New)

	mine, err := s.Search(2, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, float64(15), mine[0].Price)
}

func TestMergeImport_ExpiryStoredNullable(t *testing.T) {
	s := testStore(t)

	withExpiry := record("B-1", "Paracetamol", 12.5, 40)
	withExpiry.Expiry = importer.NormalizeExpiryDate("15/01/2025")
	withoutExpiry := record("B-2", "Cetirizine", 8, 25)
	withoutExpiry.Expiry = importer.NormalizeExpiryDate("not-a-date")

	_, err := s.MergeImport(1, []importer.Record{withExpiry, withoutExpiry}, "imp-1", "stock.csv")
	require.NoError(t, err)

	medicines, err := s.Search(1, "")
	require.NoError(t, err)
	require.Len(t, medicines, 2)
	for _, m := range medicines {
		switch m.BatchID {
		case "B-1":
			require.NotNil(t, m.ExpiryDate)
			assert.Equal(t, "2025-01-15", *m.ExpiryDate)
		case "B-2":
			assert.Nil(t, m.ExpiryDate)
			assert.Equal(t, "not-a-date", m.ExpiryRaw)
		}
	}
}

func TestRollbackImport_PartialUndo(t *testing.T) {
	s := testStore(t)

	_, err := s.MergeImport(1, []importer.Record{record("B-1", "Paracetamol", 12.5, 40)}, "imp-1", "a.csv")
	require.NoError(t, err)

	// imp-2 inserts B-2, B-3 and overwrites B-1.
	_, err = s.MergeImport(1, []importer.Record{
		record("B-1", "Paracetamol 650", 14, 50),
		record("B-2", "Cetirizine", 8, 25),
		record("B-3", "Azithromycin", 95, 12),
	}, "imp-2", "b.csv")
	require.NoError(t, err)

	result, err := s.RollbackImport(1, "imp-2")
	require.NoError(t, err)
	assert.Equal(t, RollbackResult{Removed: 2, Retained: 1}, result)

	// The updated row keeps its new values; only the inserts are gone.
	medicines, err := s.Search(1, "")
	require.NoError(t, err)
	require.Len(t, medicines, 1)
	assert.Equal(t, "B-1", medicines[0].BatchID)
	assert.Equal(t, "Paracetamol 650", medicines[0].Name)
}

func TestRollbackImport_UnknownImportID(t *testing.T) {
	s := testStore(t)

	result, err := s.RollbackImport(1, "no-such-import")
	require.NoError(t, err)
	assert.Equal(t, RollbackResult{}, result)
}

func TestSearch_Filters(t *testing.T) {
	s := testStore(t)

	para := record("B-1", "Paracetamol", 12.5, 40)
	para.Category = "Analgesic"
	cetri := record("B-2", "Cetirizine", 8, 25)
	cetri.Category = "Antihistamine"
	_, err := s.MergeImport(1, []importer.Record{para, cetri}, "imp-1", "a.csv")
	require.NoError(t, err)

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"B-2", "B-1"}},
		{"para", []string{"B-1"}},
		{"B-2", []string{"B-2"}},
		{"antihist", []string{"B-2"}},
		{"no-match", nil},
	}
	for _, tc := range cases {
		medicines, err := s.Search(1, tc.query)
		require.NoError(t, err, "query %q", tc.query)
		var got []string
		for _, m := range medicines {
			got = append(got, m.BatchID)
		}
		assert.Equal(t, tc.want, got, "query %q", tc.query)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := testStore(t)

	_, err := s.MergeImport(1, []importer.Record{record("B-1", "Paracetamol", 12.5, 40)}, "imp-1", "a.csv")
	require.NoError(t, err)

	err = s.Update(1, "B-1", domain.Medicine{Name: "Paracetamol 650", Price: 14, Quantity: 35})
	require.NoError(t, err)

	medicines, err := s.Search(1, "")
	require.NoError(t, err)
	require.Len(t, medicines, 1)
	assert.Equal(t, "Paracetamol 650", medicines[0].Name)
	assert.Equal(t, int64(35), medicines[0].Quantity)

	assert.ErrorIs(t, s.Update(1, "B-404", domain.Medicine{Name: "x"}), ErrNotFound)
	assert.ErrorIs(t, s.Update(2, "B-1", domain.Medicine{Name: "x"}), ErrNotFound)

	require.NoError(t, s.Delete(1, "B-1"))
	assert.ErrorIs(t, s.Delete(1, "B-1"), ErrNotFound)
}

func TestCategories(t *testing.T) {
	s := testStore(t)

	a := record("B-1", "Paracetamol", 12.5, 40)
	a.Category = "Analgesic"
	b := record("B-2", "Ibuprofen", 20, 15)
	b.Category = "Analgesic"
	c := record("B-3", "Cetirizine", 8, 25)
	c.Category = "Antihistamine"
	d := record("B-4", "Mystery", 1, 1)

	_, err := s.MergeImport(1, []importer.Record{a, b, c, d}, "imp-1", "a.csv")
	require.NoError(t, err)

	categories, err := s.Categories(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Analgesic", "Antihistamine"}, categories)
}

func TestStats(t *testing.T) {
	s := testStore(t)

	soon := importer.NormalizeExpiryDate(time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02"))
	far := importer.NormalizeExpiryDate(time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02"))

	expiring := record("B-1", "Paracetamol", 12.5, 40)
	expiring.Expiry = soon
	healthy := record("B-2", "Cetirizine", 8, 25)
	healthy.Expiry = far
	out := record("B-3", "Azithromycin", 95, 0)

	_, err := s.MergeImport(1, []importer.Record{expiring, healthy, out}, "imp-1", "a.csv")
	require.NoError(t, err)

	stats, err := s.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalMedicines: 3, TotalStock: 65, OutOfStock: 1, ExpiringSoon: 1}, stats)

	empty, err := s.Stats(99)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, empty)
}
