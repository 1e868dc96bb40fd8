//go:build unit

package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/animalet/notes-api/internal/app"
	"github.com/animalet/notes-api/pkg/credentials"
	"github.com/animalet/notes-api/pkg/secrets"
	"github.com/animalet/notes-api/pkg/settings"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

func load(env map[string]string) *settings.Settings {
	s, err := settings.Load(settings.WithLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Build", func() {
	var secretsDir string

	BeforeEach(func() {
		secretsDir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(secretsDir, "dynamodb"),
			[]byte(`{"aws_access_key_id":"AKIAPROD","aws_secret_access_key":"prodSecret"}`), 0o600)).To(Succeed())
	})

	It("should serve the API for a local development run", func() {
		srv, err := app.Build(context.Background(), load(map[string]string{}))
		Expect(err).NotTo(HaveOccurred())

		engine, err := srv.Engine()
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("should build with credentials from the secret store when hosted", func() {
		_, err := app.Build(context.Background(), load(map[string]string{
			"APP_ENVIRONMENT":          "lambda",
			"APP_SECRETS_BACKEND":      "file",
			"APP_SECRETS_DIR":          secretsDir,
			"APP_DYNAMODB_SECRET_NAME": "dynamodb",
		}))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should fail without falling back when the secret is missing", func() {
		_, err := app.Build(context.Background(), load(map[string]string{
			"APP_ENVIRONMENT":          "lambda",
			"APP_SECRETS_BACKEND":      "file",
			"APP_SECRETS_DIR":          secretsDir,
			"APP_DYNAMODB_SECRET_NAME": "absent",
		}))
		var credErr *credentials.CredentialError
		Expect(errors.As(err, &credErr)).To(BeTrue())
		Expect(errors.Is(err, secrets.ErrSecretNotFound)).To(BeTrue())
	})

	It("should fail when the secret store cannot be created", func() {
		_, err := app.Build(context.Background(), load(map[string]string{
			"AWS_LAMBDA_FUNCTION_NAME": "notes",
			"APP_SECRETS_BACKEND":      "file",
			"APP_SECRETS_DIR":          filepath.Join(secretsDir, "missing"),
		}))
		Expect(err).To(MatchError(ContainSubstring("failed to create secret store")))
	})

	It("should not need a secret store when hosted with environment credentials", func() {
		_, err := app.Build(context.Background(), load(map[string]string{
			"APP_ENVIRONMENT":         "lambda",
			"APP_USE_SECRETS_MANAGER": "false",
			"APP_SECRETS_BACKEND":     "file",
			"APP_SECRETS_DIR":         filepath.Join(secretsDir, "missing"),
		}))
		Expect(err).NotTo(HaveOccurred())
	})
})
