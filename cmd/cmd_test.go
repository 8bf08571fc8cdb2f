package cmd

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// clearEnv unsets keys for the current spec and restores them afterwards.
func clearEnv(keys ...string) {
	for _, key := range keys {
		if prev, ok := os.LookupEnv(key); ok {
			DeferCleanup(os.Setenv, key, prev)
		} else {
			DeferCleanup(os.Unsetenv, key)
		}
		Expect(os.Unsetenv(key)).To(Succeed())
	}
}

var _ = Describe("readConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		clearEnv("APP_ENV", "DOCKER_ENV", "HTTP_PORT", "ACCESS_STORE")
	})

	It("takes APP_ENV from the .env file when choosing environment configuration", func() {
		Expect(os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_ENV=production\nHTTP_PORT=9191\n"), 0o600)).To(Succeed())

		cfg, err := readConfig(dir)

		Expect(err).NotTo(HaveOccurred())
		Expect(isProduction()).To(BeTrue())
		Expect(cfg.Server.Port).To(Equal(9191))
		Expect(cfg.Access.Store).To(Equal("memory"))
	})

	It("reads config.yml when no .env marks the process as production", func() {
		yml := "http_server:\n  port: 7070\naccess:\n  store: memory\n"
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600)).To(Succeed())

		cfg, err := readConfig(dir)

		Expect(err).NotTo(HaveOccurred())
		Expect(isProduction()).To(BeFalse())
		Expect(cfg.Server.Port).To(Equal(7070))
	})
})
