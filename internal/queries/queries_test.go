package queries

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lojf/garage/internal/cache"
	"github.com/lojf/garage/internal/db"
	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

type fixture struct {
	db      *gorm.DB
	client  *Client
	cache   *cache.Cache
	notices *Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	c := cache.New()
	col := &Collector{}
	client := New(services.NewAttendanceService(gdb, time.UTC), services.NewLocationService(gdb), c).With(col)
	return &fixture{db: gdb, client: client, cache: c, notices: col}
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

// insertRaw writes behind the client's back so cached reads can be told apart.
func (f *fixture) insertRaw(t *testing.T, d string, sv1 int) {
	t.Helper()
	r := models.AttendanceReport{Date: date(t, d), Counts: models.Counts{SV1: sv1}, Tier: models.TierGray}
	require.NoError(t, f.db.Omit("Location").Create(&r).Error)
}

func TestReadsAreCachedUntilWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insertRaw(t, "2026-10-01", 5)
	all, err := f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	f.insertRaw(t, "2026-10-02", 7)
	all, err = f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "served from cache")

	_, err = f.client.CreateReport(ctx, services.ReportInput{Date: date(t, "2026-10-03"), Counts: models.Counts{SV1: 1}})
	require.NoError(t, err)

	all, err = f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "write invalidated the domain")
}

func TestCreateReportPatchesAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insertRaw(t, "2026-10-01", 30)
	f.insertRaw(t, "2026-10-02", 10)
	_, err := f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)

	r, err := f.client.CreateReport(ctx, services.ReportInput{
		Date:   date(t, "2026-10-11"),
		Counts: models.Counts{SV1: 10, SV2: 5, Kids: 3, Local: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, r.TotalAttendance)

	cached, ok := cache.Peek[[]models.AttendanceReport](f.cache, cache.Key{
		Domain: cache.Attendance, Op: opAllReports, Params: services.ReportFilter{}.Unpaged().Key(),
	})
	require.True(t, ok)
	require.Len(t, cached, 3)
	assert.Equal(t, []int{30, 20, 10}, []int{cached[0].TotalAttendance, cached[1].TotalAttendance, cached[2].TotalAttendance})

	n, ok := f.notices.Last()
	require.True(t, ok)
	assert.Equal(t, Success("Attendance report for 2026-10-11 created successfully!"), n)
}

func TestUpdateAndDeleteReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.client.CreateReport(ctx, services.ReportInput{Date: date(t, "2026-10-11"), Counts: models.Counts{SV1: 1}})
	require.NoError(t, err)
	_, err = f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)

	counts := models.Counts{SV1: 40, HC2: 9}
	up, err := f.client.UpdateReport(ctx, r.ID, services.ReportPatch{Counts: &counts})
	require.NoError(t, err)
	assert.Equal(t, 49, up.TotalAttendance)
	n, _ := f.notices.Last()
	assert.Equal(t, "Attendance report for 2026-10-11 updated successfully!", n.Text)

	require.NoError(t, f.client.DeleteReport(ctx, r.ID))
	n, _ = f.notices.Last()
	assert.Equal(t, Success("Attendance report deleted successfully!"), n)

	all, err := f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFailedWriteLeavesCacheAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insertRaw(t, "2026-10-01", 3)
	_, err := f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)

	_, err = f.client.CreateReport(ctx, services.ReportInput{Counts: models.Counts{SV1: 1}})
	require.ErrorIs(t, err, services.ErrInvalid)

	n, ok := f.notices.Last()
	require.True(t, ok)
	assert.Equal(t, NoticeError, n.Kind)
	assert.Equal(t, err.Error(), n.Text)

	// Still fresh: a raw insert stays invisible.
	f.insertRaw(t, "2026-10-02", 3)
	all, err := f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.client.UpdateReport(ctx, "missing", services.ReportPatch{})
	require.ErrorIs(t, err, services.ErrNotFound)
	n, _ = f.notices.Last()
	assert.Equal(t, Failure(services.ErrNotFound.Error()), n)
}

func TestMetricsIgnoreTierAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insertRaw(t, "2026-10-01", 4)
	m, err := f.client.Metrics(ctx, services.ReportFilter{Tier: "purple", Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 4, m.Overall)

	f.insertRaw(t, "2026-10-02", 4)
	m, err = f.client.Metrics(ctx, services.ReportFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, m.Overall, "same key as the tiered call")
}

func TestShortSearchSkipsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, q := range []string{"", " ", "a", " é "} {
		got, err := f.client.Search(ctx, q)
		require.NoError(t, err, q)
		assert.Empty(t, got)
	}
	_, err = f.client.Search(ctx, "ha")
	assert.Error(t, err)
	assert.Equal(t, 0, f.cache.Len())
}

func TestLocationWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.ActiveLocations(ctx)
	require.NoError(t, err)

	b, err := f.client.CreateLocation(ctx, nil, services.LocationInput{Name: "beta"})
	require.NoError(t, err)
	n, _ := f.notices.Last()
	assert.Equal(t, `Location "beta" created successfully!`, n.Text)

	_, err = f.client.CreateLocation(ctx, nil, services.LocationInput{Name: "Alpha"})
	require.NoError(t, err)

	cached, ok := cache.Peek[[]models.Location](f.cache, cache.Key{Domain: cache.Locations, Op: opActive})
	require.True(t, ok)
	require.Len(t, cached, 2)
	assert.Equal(t, "Alpha", cached[0].Name)

	_, err = f.client.Location(ctx, b.ID)
	require.NoError(t, err)
	up, err := f.client.UpdateLocation(ctx, b.ID, services.LocationPatch{Name: strp("Beta Hall")})
	require.NoError(t, err)
	assert.Equal(t, "Beta Hall", up.Name)
	detail, ok := cache.Peek[*models.Location](f.cache, cache.Key{Domain: cache.Locations, Op: opDetail, Params: b.ID})
	require.True(t, ok)
	assert.Equal(t, "Beta Hall", detail.Name)

	_, err = f.client.CreateLocation(ctx, nil, services.LocationInput{Name: " "})
	require.Error(t, err)
	n, _ = f.notices.Last()
	assert.Equal(t, NoticeError, n.Kind)
	assert.Equal(t, "location name is required", n.Text)
}

func TestDeleteLocationRefreshesReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.client.CreateLocation(ctx, nil, services.LocationInput{Name: "Hall A"})
	require.NoError(t, err)
	_, err = f.client.CreateReport(ctx, services.ReportInput{Date: date(t, "2026-10-11"), LocationID: &l.ID, Counts: models.Counts{SV1: 1}})
	require.NoError(t, err)

	all, err := f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Hall A", all[0].LocationName())

	require.NoError(t, f.client.DeleteLocation(ctx, l.ID))
	n, _ := f.notices.Last()
	assert.Equal(t, "Location deleted successfully!", n.Text)

	all, err = f.client.AllReports(ctx, services.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].LocationID)
	assert.Nil(t, all[0].Location)
}

func TestWithKeepsNoticesApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &Collector{}
	_, err := f.client.With(other).CreateLocation(ctx, nil, services.LocationInput{Name: "Hall A"})
	require.NoError(t, err)
	assert.Len(t, other.Notices(), 1)
	assert.Empty(t, f.notices.Notices())

	var got []Notice
	_, err = f.client.With(NotifierFunc(func(n Notice) { got = append(got, n) })).
		CreateLocation(ctx, nil, services.LocationInput{Name: "Hall B"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func strp(s string) *string { return &s }
