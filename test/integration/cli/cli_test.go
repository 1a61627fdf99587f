// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

const bundledScripts = "../../../scripts"

func start(args ...string) *gexec.Session {
	cmd := exec.Command(binPath, args...)
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+GinkgoT().TempDir(),
		"XDG_RUNTIME_DIR="+GinkgoT().TempDir(),
	)
	session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
	Expect(err).NotTo(HaveOccurred())
	return session
}

var _ = Describe("hookbridge CLI", func() {
	Describe("schema", func() {
		It("prints the manifest schema", func() {
			session := start("schema")
			Eventually(session).Should(gexec.Exit(0))

			var schema map[string]any
			Expect(json.Unmarshal(session.Out.Contents(), &schema)).To(Succeed())
			Expect(schema).To(HaveKeyWithValue("title", "Hookbridge Script Manifest"))
		})
	})

	Describe("validate", func() {
		It("accepts the bundled scripts", func() {
			session := start("validate", bundledScripts)
			Eventually(session).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say("chat-filter 1.0.0"))
			Expect(session.Out).To(gbytes.Say("creature-ai 1.2.0"))
		})

		It("fails on a script that does not compile", func() {
			dir := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "script.yaml"),
				[]byte("name: broken\nversion: 1.0.0\nentry: main.lua\n"), 0o600)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "main.lua"), []byte("function ("), 0o600)).To(Succeed())

			session := start("validate", dir)
			Eventually(session).Should(gexec.Exit(1))
			Expect(session.Out).To(gbytes.Say("FAIL"))
		})
	})

	Describe("run", func() {
		It("loads scripts and shuts down on SIGINT", func() {
			session := start("run",
				"--scripts-dir", bundledScripts,
				"--tick-interval", "20ms",
				"--log-format", "text",
			)
			Eventually(session.Err, 10*time.Second).Should(gbytes.Say("runner started"))

			session.Signal(syscall.SIGINT)
			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
			Expect(string(session.Err.Contents())).To(ContainSubstring("loaded=2 failed=0"))
			Expect(string(session.Err.Contents())).To(ContainSubstring("shutdown complete"))
		})

		It("answers status on the control socket", func() {
			sockDir, err := os.MkdirTemp("/tmp", "hookbridge-cli-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, sockDir)
			socket := filepath.Join(sockDir, "hookbridge.sock")

			session := start("run",
				"--scripts-dir", bundledScripts,
				"--log-format", "text",
				"--control-socket", socket,
			)
			Eventually(session.Err, 10*time.Second).Should(gbytes.Say("runner started"))

			status := start("status", "--socket", socket, "--json")
			Eventually(status, 10*time.Second).Should(gexec.Exit(0))
			Expect(status.Out).To(gbytes.Say(`"chat-filter"`))
			Expect(status.Out).To(gbytes.Say(`"creature-ai"`))

			session.Signal(syscall.SIGTERM)
			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
			Expect(filepath.Join(sockDir, "hookbridge.sock")).NotTo(BeAnExistingFile())
		})

		It("rejects invalid configuration", func() {
			session := start("run", "--tick-interval", "0s")
			Eventually(session, 10*time.Second).Should(gexec.Exit(1))
			Expect(session.Err).To(gbytes.Say("tick_interval must be positive"))
		})

		It("reads settings from the environment", func() {
			cmd := exec.Command(binPath, "run", "--scripts-dir", bundledScripts)
			cmd.Env = append(os.Environ(),
				"XDG_CONFIG_HOME="+GinkgoT().TempDir(),
				"XDG_RUNTIME_DIR="+GinkgoT().TempDir(),
				"HOOKBRIDGE_LOG_FORMAT=text",
				"HOOKBRIDGE_TICK_INTERVAL=20ms",
			)
			session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session.Err, 10*time.Second).Should(gbytes.Say(`runner started.*interval=20ms`))
			session.Signal(syscall.SIGTERM)
			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
		})
	})
})
