// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldContinueMeditation(t *testing.T) {
	accepts := []string{
		"yes",
		"Yes please",
		"sure, why not",
		"ok",
		"Okay, I'm ready",
		"please guide me",
		"let's do it",
		"lets go",
		"I want to meditate",
		"help me",
		"start",
		"I'd like that",
		"begin",
		"READY",
	}
	for _, msg := range accepts {
		assert.True(t, ShouldContinueMeditation(msg), "expected acceptance for %q", msg)
	}

	declines := []string{
		"no",
		"not now",
		"stop",
		"what is the Beautiful State?",
		"",
	}
	for _, msg := range declines {
		assert.False(t, ShouldContinueMeditation(msg), "expected decline for %q", msg)
	}
}

func TestFormatMeditationStep(t *testing.T) {
	for i := 1; i <= MaxMeditationStep; i++ {
		out := FormatMeditationStep(i)
		assert.Contains(t, out, MeditationSteps[i-1].Title)
		assert.Contains(t, out, MeditationSteps[i-1].Prompt)
	}

	assert.Contains(t, FormatMeditationStep(1), "Step 1/4: Settling In")

	// Out of range closes the session.
	done := "The meditation is complete. Thank you for practicing with me. 🙏"
	assert.Equal(t, done, FormatMeditationStep(0))
	assert.Equal(t, done, FormatMeditationStep(5))
}

func TestIsMeditationComplete(t *testing.T) {
	assert.False(t, IsMeditationComplete(0))
	assert.False(t, IsMeditationComplete(4))
	assert.True(t, IsMeditationComplete(5))
}

func TestDistressResponseCarriesHelplines(t *testing.T) {
	resp := DistressResponse()
	assert.Contains(t, resp, "Serene Mind meditation")
	assert.Contains(t, resp, "988")
	assert.Contains(t, resp, "9152987821")
	assert.Contains(t, resp, "741741")
}
