package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/errs"
)

func registerTestDevice(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.RegisterDevice(id, "", "", "", time.Now()))
}

func TestPutDeviceSettings_PartialUpdateLeavesOtherFieldsAlone(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	require.NoError(t, s.PutDeviceSettings("dev-1", map[string]interface{}{"brightness": 5}))

	settings, err := s.GetDeviceSettings("dev-1")
	require.NoError(t, err)
	assert.Equal(t, 5, settings.Brightness)
	assert.Equal(t, "single", settings.ScrollMode, "untouched fields keep their prior value")
}

func TestPutDeviceSettings_RejectsUnknownField(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	err := s.PutDeviceSettings("dev-1", map[string]interface{}{"bogus_field": 1})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidationFailure, errs.KindOf(err))
}

func TestPutDeviceSettings_RejectsOutOfRangeBrightness(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	err := s.PutDeviceSettings("dev-1", map[string]interface{}{"brightness": 11})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidationFailure, errs.KindOf(err))
}

func TestPutDeviceSettings_RejectsEmptyAssetOrder(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	err := s.PutDeviceSettings("dev-1", map[string]interface{}{"asset_order": []interface{}{}})
	require.Error(t, err)
}

func TestPutDeviceSettings_AdvancesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	before, err := s.GetDeviceSettings("dev-1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	require.NoError(t, s.PutDeviceSettings("dev-1", map[string]interface{}{"font": "bold"}))

	after, err := s.GetDeviceSettings("dev-1")
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestTouchDeviceSettings_404sForUnknownDevice(t *testing.T) {
	s := newTestStore(t)
	err := s.TouchDeviceSettings("ghost")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestTouchDeviceSettings_AdvancesWatermarkWithoutFieldChanges(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	before, err := s.GetDeviceSettings("dev-1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	require.NoError(t, s.TouchDeviceSettings("dev-1"))

	after, err := s.GetDeviceSettings("dev-1")
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.ScrollMode, after.ScrollMode)
}

func TestPutDeviceSettings_ValidatesAssetClassMembers(t *testing.T) {
	s := newTestStore(t)
	registerTestDevice(t, s, "dev-1")

	err := s.PutDeviceSettings("dev-1", map[string]interface{}{
		"top_sources": []interface{}{string(domain.AssetStocks), "commodities"},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidationFailure, errs.KindOf(err))
}
