package main

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/positioning"
)

// calibrateCmd returns a command carrying the calibrate flag, parsed from args.
func calibrateCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	t.Cleanup(func() { flagCalibrate = 0 })
	cmd := &cobra.Command{Use: "indoor-nav"}
	cmd.PersistentFlags().Float64Var(&flagCalibrate, "calibrate-meters", 0, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestCalibrateMeters(t *testing.T) {
	tuning, err := config.LoadTuning("")
	require.NoError(t, err)

	t.Run("negative flag is rejected", func(t *testing.T) {
		_, err := calibrateMeters(calibrateCmd(t, "--calibrate-meters=-2"), tuning)
		assert.ErrorIs(t, err, positioning.ErrInvalidDistance)
	})

	t.Run("explicit zero is rejected", func(t *testing.T) {
		_, err := calibrateMeters(calibrateCmd(t, "--calibrate-meters=0"), tuning)
		assert.ErrorIs(t, err, positioning.ErrInvalidDistance)
	})

	t.Run("positive flag wins", func(t *testing.T) {
		m, err := calibrateMeters(calibrateCmd(t, "--calibrate-meters=4.5"), tuning)
		require.NoError(t, err)
		assert.Equal(t, 4.5, m)
	})

	t.Run("unset flag falls back to the tuning file", func(t *testing.T) {
		m, err := calibrateMeters(calibrateCmd(t), tuning)
		require.NoError(t, err)
		assert.Equal(t, tuning.GetCalibrateMeters(), m)
	})

	t.Run("setup stops on a bad flag", func(t *testing.T) {
		log := logrus.New()
		log.SetOutput(io.Discard)
		_, _, err := setup(calibrateCmd(t, "--calibrate-meters=-1"), log)
		assert.ErrorIs(t, err, positioning.ErrInvalidDistance)
	})
}

func TestNewLogger(t *testing.T) {
	_, _, err := newLogger("", "loud", io.Discard)
	assert.Error(t, err)

	log, closeLog, err := newLogger("", "debug", io.Discard)
	require.NoError(t, err)
	defer closeLog()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}
