package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDevice_FirstContactCreatesDefaultSettings(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.RegisterDevice("dev-1", "Kitchen Display", "led-matrix", "192.168.1.50", now))

	device, err := s.GetDevice("dev-1")
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, "Kitchen Display", device.DeviceName)
	assert.Equal(t, "led-matrix", device.DeviceType)

	settings, err := s.GetDeviceSettings("dev-1")
	require.NoError(t, err)
	assert.Equal(t, "single", settings.ScrollMode)
}

func TestRegisterDevice_RepeatContactPreservesNameUnlessOverridden(t *testing.T) {
	s := newTestStore(t)
	first := time.Now().Add(-time.Hour)
	require.NoError(t, s.RegisterDevice("dev-2", "Hallway", "led-matrix", "10.0.0.5", first))

	second := time.Now()
	require.NoError(t, s.RegisterDevice("dev-2", "", "", "10.0.0.6", second))

	device, err := s.GetDevice("dev-2")
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, "Hallway", device.DeviceName, "empty override must not clobber the existing name")
	assert.Equal(t, "10.0.0.6", device.IPHint)
	assert.True(t, device.LastSeen.After(device.FirstSeen) || device.LastSeen.Equal(device.FirstSeen))
}

func TestGetDevice_AbsentReturnsNilNotError(t *testing.T) {
	s := newTestStore(t)
	device, err := s.GetDevice("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, device)
}

func TestListDevices_OrderedByLastSeenDescending(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterDevice("older", "", "", "", time.Now().Add(-time.Hour)))
	require.NoError(t, s.RegisterDevice("newer", "", "", "", time.Now()))

	devices, err := s.ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "newer", devices[0].DeviceID)
	assert.Equal(t, "older", devices[1].DeviceID)
}
