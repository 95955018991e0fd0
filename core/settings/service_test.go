package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/settings"
	"github.com/trezcool/asistencia/storage/database/inmem"
	"github.com/trezcool/asistencia/tests"
)

func iPtr(i int) *int { return &i }

func TestService_Get_defaults(t *testing.T) {
	svc := settings.NewService(inmemdb.NewSettingsRepository(inmemdb.Open()))

	st, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, st.AttendanceToleranceMin)
	assert.Equal(t, 30, st.LateThresholdMin)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(inmemdb.NewSettingsRepository(inmemdb.Open()))

	saved, err := svc.Update(ctx, settings.UpdateSettings{AttendanceToleranceMin: iPtr(10), LateThresholdMin: iPtr(10)})
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())

	st, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, st.AttendanceToleranceMin)
	assert.Equal(t, 10, st.LateThresholdMin)

	// the invariant holds even without the validator
	_, err = svc.Update(ctx, settings.UpdateSettings{AttendanceToleranceMin: iPtr(20), LateThresholdMin: iPtr(5)})
	assert.True(t, core.IsValidation(err))
	st, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, st.AttendanceToleranceMin, "rejected writes change nothing")
}

func TestUpdateSettings_Validate(t *testing.T) {
	validate := testutil.NewValidator()

	tests := []struct {
		name    string
		us      settings.UpdateSettings
		wantErr bool
	}{
		{name: "defaults", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(15), LateThresholdMin: iPtr(30)}},
		{name: "zero", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(0), LateThresholdMin: iPtr(0)}},
		{name: "max", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(240), LateThresholdMin: iPtr(240)}},
		{name: "missing tolerance", us: settings.UpdateSettings{LateThresholdMin: iPtr(30)}, wantErr: true},
		{name: "missing threshold", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(15)}, wantErr: true},
		{name: "negative", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(-1), LateThresholdMin: iPtr(30)}, wantErr: true},
		{name: "too big", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(15), LateThresholdMin: iPtr(241)}, wantErr: true},
		{name: "threshold below tolerance", us: settings.UpdateSettings{AttendanceToleranceMin: iPtr(30), LateThresholdMin: iPtr(15)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.us.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_Check(t *testing.T) {
	assert.NoError(t, settings.Default().Check())
	assert.Error(t, settings.Settings{AttendanceToleranceMin: 241, LateThresholdMin: 241}.Check())
	assert.Error(t, settings.Settings{AttendanceToleranceMin: 16, LateThresholdMin: 15}.Check())
}
