package main

import (
	"errors"
	"testing"

	"github.com/ninefold/ifcc/config"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/globals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlagsSetsTargetAndPreset(t *testing.T) {
	s := config.DefaultSettings()
	err := applyFlags(s, nil, "glulx32", false, true, false, "", 0, false, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, config.TargetGlulx32, s.Target)
	assert.Equal(t, "LARGE", s.SizePreset)
}

func TestApplyFlagsRejectsMultiplePresets(t *testing.T) {
	s := config.DefaultSettings()
	err := applyFlags(s, nil, "", true, true, false, "", 0, false, false, nil, nil)
	assert.Error(t, err)
}

func TestApplyFlagsRejectsUnknownTarget(t *testing.T) {
	s := config.DefaultSettings()
	err := applyFlags(s, nil, "z80", false, false, false, "", 0, false, false, nil, nil)
	assert.Error(t, err)
}

func TestApplyFlagsParsesMemorySettingsAndDefines(t *testing.T) {
	s := config.DefaultSettings()
	err := applyFlags(s, nil, "", false, false, false, "", 0, false, false,
		[]string{"MAX_ARRAYS=900"}, []string{"DEBUG", "VERSION=3"})
	require.NoError(t, err)
	assert.Equal(t, 900, s.Memory["MAX_ARRAYS"])
	require.Len(t, s.Defines, 2)
	assert.Equal(t, "DEBUG", s.Defines[0].Name)
	assert.False(t, s.Defines[0].HasExpr)
	assert.Equal(t, int32(3), s.Defines[1].Value)
	assert.True(t, s.Defines[1].HasExpr)
}

func TestApplyFlagsValidatesSerial(t *testing.T) {
	s := config.DefaultSettings()
	err := applyFlags(s, nil, "", false, false, false, "bad", 0, false, false, nil, nil)
	assert.Error(t, err)
}

func TestDefaultOutputPathPicksExtensionByTarget(t *testing.T) {
	assert.Equal(t, "game.z5", defaultOutputPath("game.inf", config.TargetZ16))
	assert.Equal(t, "game.ulx", defaultOutputPath("game.inf", config.TargetGlulx32))
}

func TestReportFatalDistinguishesMemoryOverflow(t *testing.T) {
	bag := diag.NewBag()
	code := reportFatal(&globals.OverflowError{Setting: "MAX_DYNAMIC_SIZE", Limit: 100, Got: 200}, bag)
	assert.Equal(t, ExitMemoryOverflow, code)
}

func TestReportFatalDefaultsToGenericError(t *testing.T) {
	bag := diag.NewBag()
	code := reportFatal(errors.New("boom"), bag)
	assert.Equal(t, ExitError, code)
}
