//go:build unit

package secrets_test

import (
	"context"
	"encoding/json"

	"github.com/animalet/notes-api/pkg/secrets"
	"github.com/hashicorp/vault/api"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type fakeVault struct {
	secrets map[string]*api.Secret
	err     error
	paths   []string
}

func (f *fakeVault) ReadWithContext(_ context.Context, path string) (*api.Secret, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.secrets[path], nil
}

var _ = Describe("Vault Secrets", func() {
	Context("VaultConfig", func() {
		It("should require address, token and path", func() {
			Expect(secrets.VaultConfig{}.Validate()).To(MatchError(ContainSubstring("address")))
			Expect(secrets.VaultConfig{Address: "http://vault:8200"}.Validate()).To(MatchError(ContainSubstring("token")))
			Expect(secrets.VaultConfig{Address: "http://vault:8200", Token: "t"}.Validate()).To(MatchError(ContainSubstring("path")))
			Expect(secrets.VaultConfig{Address: "http://vault:8200", Token: "t", Path: "secret/data"}.Validate()).To(Succeed())
		})

		It("should create a client with token and namespace", func() {
			client, err := secrets.VaultConfig{
				Address:   "http://vault:8200",
				Token:     "dev-root-token",
				Path:      "secret/data",
				Namespace: "team",
			}.CreateClient()
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Address()).To(Equal("http://vault:8200"))
			Expect(client.Token()).To(Equal("dev-root-token"))
			Expect(client.Namespace()).To(Equal("team"))
		})

		It("should refuse an invalid configuration", func() {
			_, err := secrets.VaultConfig{Address: "http://vault:8200"}.CreateClient()
			Expect(err).To(MatchError(ContainSubstring("invalid Vault configuration")))
		})
	})

	Context("VaultStore", func() {
		var fake *fakeVault

		BeforeEach(func() {
			fake = &fakeVault{secrets: map[string]*api.Secret{
				"secret/data/notes/dynamodb": {Data: map[string]interface{}{
					"data":     map[string]interface{}{"aws_access_key_id": "AKIA", "aws_secret_access_key": "s3cr3t"},
					"metadata": map[string]interface{}{"version": 1},
				}},
				"kv/notes/dynamodb": {Data: map[string]interface{}{"aws_access_key_id": "AKIA1"}},
				"secret/data/deleted": {Data: map[string]interface{}{
					"data":     nil,
					"metadata": map[string]interface{}{"deletion_time": "2024-01-01T00:00:00Z"},
				}},
			}}
		})

		It("should read KV v2 data as a JSON object", func() {
			value, err := secrets.NewVaultStore(fake, "secret/data").GetSecret(context.Background(), "notes/dynamodb")
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.paths).To(Equal([]string{"secret/data/notes/dynamodb"}))

			var decoded map[string]string
			Expect(json.Unmarshal([]byte(value), &decoded)).To(Succeed())
			Expect(decoded).To(Equal(map[string]string{"aws_access_key_id": "AKIA", "aws_secret_access_key": "s3cr3t"}))
		})

		It("should read KV v1 data as a JSON object", func() {
			value, err := secrets.NewVaultStore(fake, "kv").GetSecret(context.Background(), "notes/dynamodb")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(MatchJSON(`{"aws_access_key_id":"AKIA1"}`))
		})

		It("should report missing and deleted secrets as not found", func() {
			store := secrets.NewVaultStore(fake, "secret/data")

			_, err := store.GetSecret(context.Background(), "absent")
			Expect(errors.Is(err, secrets.ErrSecretNotFound)).To(BeTrue())

			_, err = store.GetSecret(context.Background(), "deleted")
			Expect(errors.Is(err, secrets.ErrSecretNotFound)).To(BeTrue())
		})

		It("should wrap read failures", func() {
			fake.err = errors.New("permission denied")
			_, err := secrets.NewVaultStore(fake, "secret/data").GetSecret(context.Background(), "notes/dynamodb")
			Expect(err).To(MatchError(ContainSubstring("permission denied")))
			Expect(errors.Is(err, secrets.ErrSecretNotFound)).To(BeFalse())
		})

		It("should have a name", func() {
			Expect(secrets.NewVaultStore(fake, "secret/data").Name()).To(Equal("Vault"))
		})
	})
})
