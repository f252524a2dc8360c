package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/szervas/fusebox/config"
	"github.com/szervas/fusebox/internal/circuitbreaker"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		viper.Reset()

		err = os.Chdir(tempDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	writeConfig := func(content string) {
		configPath := filepath.Join(tempDir, "config.yaml")
		err := os.WriteFile(configPath, []byte(content), 0644)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
server:
  address: ":8090"
  environment: "dev"

logging:
  level: "debug"

breakers:
  overrides:
    - name: database
      failure_threshold: 7
      timeout: "2s"
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse server settings", func() {
				cfg, _ := config.Load()
				Expect(cfg.Server.Address).To(Equal(":8090"))
				Expect(cfg.Server.Environment).To(Equal("dev"))
			})

			It("should parse logging level", func() {
				cfg, _ := config.Load()
				Expect(cfg.Logging.Level).To(Equal("debug"))
			})

			It("should parse breaker overrides", func() {
				cfg, _ := config.Load()
				Expect(cfg.Breakers.Overrides).To(HaveLen(1))
				Expect(cfg.Breakers.Overrides[0].Name).To(Equal("database"))
				Expect(cfg.Breakers.Overrides[0].FailureThreshold).To(Equal(7))
			})
		})

		Context("without a config file", func() {
			It("should use defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8090"))
				Expect(cfg.Server.Environment).To(Equal("dev"))
				Expect(cfg.Logging.Level).To(Equal("info"))
				Expect(cfg.Breakers.Overrides).To(BeEmpty())
			})
		})

		Context("with invalid values", func() {
			It("should reject an unknown environment", func() {
				writeConfig(`
server:
  address: ":8090"
  environment: "production"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject a malformed address", func() {
				writeConfig(`
server:
  address: "no-port"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject an unknown log level", func() {
				writeConfig(`
logging:
  level: "verbose"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject an override without a name", func() {
				writeConfig(`
breakers:
  overrides:
    - failure_threshold: 3
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject an override with a bad duration", func() {
				writeConfig(`
breakers:
  overrides:
    - name: database
      timeout: "soon"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Profiles", func() {
		It("should return the built-in table when no overrides are set", func() {
			cfg := &config.Config{}
			profiles, err := cfg.Profiles()
			Expect(err).NotTo(HaveOccurred())
			Expect(profiles).To(HaveLen(len(circuitbreaker.DefaultProfiles())))
		})

		It("should apply numeric overrides to a profile", func() {
			cfg := &config.Config{
				Breakers: config.BreakersConfig{
					Overrides: []config.BreakerOverride{
						{
							Name:             circuitbreaker.ProfileDatabase,
							FailureThreshold: 7,
							Timeout:          "2s",
							ResetTimeout:     "1m",
						},
					},
				},
			}

			profiles, err := cfg.Profiles()
			Expect(err).NotTo(HaveOccurred())

			var database circuitbreaker.Config
			for _, profile := range profiles {
				if profile.Name == circuitbreaker.ProfileDatabase {
					database = profile
				}
			}

			Expect(database.FailureThreshold).To(Equal(7))
			Expect(database.Timeout).To(Equal(2 * time.Second))
			Expect(database.ResetTimeout).To(Equal(time.Minute))
			// Untouched fields keep the profile values.
			Expect(database.SuccessThreshold).To(Equal(2))
		})

		It("should keep profile fallbacks and classifiers intact", func() {
			cfg := &config.Config{
				Breakers: config.BreakersConfig{
					Overrides: []config.BreakerOverride{
						{Name: circuitbreaker.ProfileCache, FailureThreshold: 3},
					},
				},
			}

			profiles, err := cfg.Profiles()
			Expect(err).NotTo(HaveOccurred())

			for _, profile := range profiles {
				if profile.Name == circuitbreaker.ProfileCache {
					Expect(profile.Fallback).NotTo(BeNil())
				}
			}
		})

		It("should reject overrides for unknown profiles", func() {
			cfg := &config.Config{
				Breakers: config.BreakersConfig{
					Overrides: []config.BreakerOverride{
						{Name: "no-such-dependency"},
					},
				},
			}

			_, err := cfg.Profiles()
			Expect(err).To(HaveOccurred())
		})
	})
})
