// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	resp, err := sendChat(datatypes.ChatRequest{UserMessage: question}, "")
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		os.Exit(1)
	}
	printResponse(resp)
}

func runChatCommand(cmd *cobra.Command, args []string) {
	sessionID := uuid.New().String()
	var history []datatypes.Message
	meditationStep := 0

	fmt.Println(headerStyle.Render("Mukthi Guru") +
		" - interactive chat (type 'exit' or Ctrl-D to leave)")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		resp, err := sendChat(datatypes.ChatRequest{
			UserMessage:    line,
			Messages:       history,
			MeditationStep: meditationStep,
		}, sessionID)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			continue
		}

		printResponse(resp)
		meditationStep = resp.MeditationStep
		history = append(history,
			datatypes.Message{Role: "user", Content: line},
			datatypes.Message{Role: "assistant", Content: resp.Response},
		)
		// Keep the carried history well under the server's cap.
		if len(history) > 40 {
			history = history[len(history)-40:]
		}
	}
}

func printResponse(resp *datatypes.ChatResponse) {
	if resp.Blocked {
		fmt.Println(blockedStyle.Render(resp.Response))
		return
	}
	fmt.Println(answerStyle.Render(resp.Response))
	for _, citation := range resp.Citations {
		fmt.Println(sourceStyle.Render("  source: " + citation))
	}
}
