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
	"fmt"
	"strings"
)

// The Serene Mind meditation is a fixed four-step guided practice. The
// client echoes the step counter back on each turn, and the user must
// confirm between steps, so one HTTP round trip delivers one step.

// MeditationStep is one step of the guided practice.
type MeditationStep struct {
	Step   int
	Title  string
	Prompt string
}

// MeditationSteps holds the full Serene Mind sequence in order.
var MeditationSteps = []MeditationStep{
	{
		Step:  1,
		Title: "Settling In",
		Prompt: "Let us begin with a moment of stillness. 🙏\n\n" +
			"Find a comfortable place to sit. Close your eyes gently. " +
			"Take three deep breaths, in through the nose, out through the mouth.\n\n" +
			"With each exhale, let go of any tension you're carrying. " +
			"There is nowhere you need to be right now. Just here. Just this.\n\n" +
			"When you're ready, let me know and we'll move to the next step. 🌸",
	},
	{
		Step:  2,
		Title: "Body Awareness",
		Prompt: "Beautiful. Now, gently bring your awareness to your body. 🧘\n\n" +
			"Start from the top of your head... feel the weight of your " +
			"thoughts beginning to dissolve. Move your awareness slowly " +
			"down through your face, neck, shoulders...\n\n" +
			"Notice any areas of tightness. Don't try to change them, " +
			"just observe, like watching clouds pass across a clear sky.\n\n" +
			"As Sri Krishnaji teaches: 'Awareness is the greatest agent of change.'\n\n" +
			"Take your time. When you're ready, let me know. 🌿",
	},
	{
		Step:  3,
		Title: "Heart Connection",
		Prompt: "Now, gently place your attention on your heart. ❤️\n\n" +
			"Feel the warmth there. Imagine a soft golden light " +
			"radiating from your heart center, expanding with each breath.\n\n" +
			"This is what Sri Preethaji calls 'The Beautiful State', " +
			"a state of calm, joy, and deep connection.\n\n" +
			"You don't need to create this feeling. It's already there, " +
			"beneath the layers of worry and thought. Just allow yourself " +
			"to notice it.\n\n" +
			"Stay here as long as you need. When ready, we'll close together. 💛",
	},
	{
		Step:  4,
		Title: "Gentle Return",
		Prompt: "When you're ready, slowly begin to return. 🌅\n\n" +
			"Wiggle your fingers and toes. Feel the surface beneath you. " +
			"Take one final deep breath and open your eyes.\n\n" +
			"Carry this sense of peace with you. Remember: the Beautiful State " +
			"is not something you reach, it's something you return to.\n\n" +
			"As Sri Krishnaji says: 'You are not your suffering. " +
			"You are the consciousness that observes it.'\n\n" +
			"Thank you for taking this time for yourself. 🙏✨\n\n" +
			"How are you feeling now?",
	},
}

// MaxMeditationStep is the highest valid step number.
var MaxMeditationStep = len(MeditationSteps)

// DistressResponse is the acknowledgment shown when distress is
// detected, before any meditation begins. It always carries crisis
// helpline information.
func DistressResponse() string {
	return "I hear you, and I want you to know that your feelings are valid. 🙏\n\n" +
		"In moments like these, the teachings remind us that suffering " +
		"is a doorway to transformation. It may not feel like it now, " +
		"but pain can be a catalyst for deeper awareness.\n\n" +
		"Would you like me to guide you through a **Serene Mind meditation** " +
		"to help you find some inner peace right now?\n\n" +
		"🆘 *If you're in immediate crisis, please reach out:*\n" +
		"- *National Suicide Prevention Lifeline: 988 (US)*\n" +
		"- *iCall: 9152987821 (India)*\n" +
		"- *Crisis Text Line: Text HOME to 741741*"
}

// FormatMeditationStep renders step for the chat response, with a
// progress header. An out-of-range step closes the session.
func FormatMeditationStep(step int) string {
	if step < 1 || step > MaxMeditationStep {
		return "The meditation is complete. Thank you for practicing with me. 🙏"
	}
	data := MeditationSteps[step-1]
	return fmt.Sprintf("**Step %d/%d: %s**\n\n%s", data.Step, MaxMeditationStep, data.Title, data.Prompt)
}

// IsMeditationComplete reports whether the session has delivered all
// steps.
func IsMeditationComplete(step int) bool {
	return step > MaxMeditationStep
}

// positiveSignals are the phrases that keep a meditation session going.
// Matching is substring based so "yes please" and "okay, ready" both
// count.
var positiveSignals = []string{
	"yes", "sure", "ok", "okay", "please", "let's", "lets",
	"guide me", "meditat", "help me", "start", "i'd like",
	"begin", "ready",
}

// ShouldContinueMeditation reports whether message accepts the next
// meditation step. Anything that does not clearly accept ends the
// session; the LLM is deliberately not consulted here.
func ShouldContinueMeditation(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, signal := range positiveSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}
