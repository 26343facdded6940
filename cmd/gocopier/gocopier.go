// Copyright 2024 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"

	"github.com/abcxyz/gocopier/internal/version"
	"github.com/abcxyz/gocopier/templates/commands/auto"
	"github.com/abcxyz/gocopier/templates/commands/cmdutil"
	"github.com/abcxyz/gocopier/templates/commands/copy"
	"github.com/abcxyz/gocopier/templates/commands/update"
)

const (
	defaultLogLevel  = logging.LevelWarning
	defaultLogFormat = logging.FormatText
)

var rootCmd = func() *cli.RootCommand {
	return &cli.RootCommand{
		Name:    version.Name,
		Version: version.HumanVersion,
		Commands: map[string]cli.CommandFactory{
			"copy": func() cli.Command {
				return &copy.Command{}
			},
			"update": func() cli.Command {
				return &update.Command{}
			},
			"auto": func() cli.Command {
				return &auto.Command{}
			},
		},
	}
}

func main() {
	ctx, done := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer done()

	setLogEnvVars()
	ctx = logging.WithLogger(ctx, logging.NewFromEnv("GOCOPIER_"))

	err := rootCmd().Run(ctx, os.Args[1:])
	done()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(cmdutil.ExitCode(err))
	}
}

func setLogEnvVars() {
	if os.Getenv("GOCOPIER_LOG_FORMAT") == "" {
		os.Setenv("GOCOPIER_LOG_FORMAT", string(defaultLogFormat))
	}
	if os.Getenv("GOCOPIER_LOG_LEVEL") == "" {
		os.Setenv("GOCOPIER_LOG_LEVEL", defaultLogLevel.String())
	}
}
