package credential

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// secretClient is the subset of *secretmanager.Client used here.
type secretClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest, opts ...gax.CallOption) error
}

var _ secretClient = (*secretmanager.Client)(nil)

// SecretManagerStore keeps each credential as a Google Cloud Secret Manager
// secret named <prefix><key>; Set adds a new version, Get reads the latest.
type SecretManagerStore struct {
	sm        secretClient
	projectID string
	prefix    string
}

func NewSecretManagerStore(sm *secretmanager.Client, projectID, prefix string) *SecretManagerStore {
	return newSecretManagerStore(sm, projectID, prefix)
}

func newSecretManagerStore(sm secretClient, projectID, prefix string) *SecretManagerStore {
	return &SecretManagerStore{
		sm:        sm,
		projectID: strings.TrimSpace(projectID),
		prefix:    strings.TrimSpace(prefix),
	}
}

func (s *SecretManagerStore) Get(ctx context.Context, key string) (string, error) {
	name := s.secretName(key) + "/versions/latest"
	resp, err := s.sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if status.Code(err) == codes.NotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return "", fmt.Errorf("access secret %s: empty payload", name)
	}
	return string(resp.Payload.Data), nil
}

func (s *SecretManagerStore) Set(ctx context.Context, key, value string) error {
	err := s.addVersion(ctx, key, value)
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("add secret version %s: %w", s.secretName(key), err)
	}

	// first write for this key
	_, err = s.sm.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + s.projectID,
		SecretId: s.secretID(key),
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("create secret %s: %w", s.secretName(key), err)
	}
	if err := s.addVersion(ctx, key, value); err != nil {
		return fmt.Errorf("add secret version %s: %w", s.secretName(key), err)
	}
	return nil
}

func (s *SecretManagerStore) Delete(ctx context.Context, key string) error {
	err := s.sm.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: s.secretName(key)})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("delete secret %s: %w", s.secretName(key), err)
	}
	return nil
}

// addVersion returns the raw gRPC error so callers can inspect its code.
func (s *SecretManagerStore) addVersion(ctx context.Context, key, value string) error {
	_, err := s.sm.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretName(key),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	})
	return err
}

func (s *SecretManagerStore) secretID(key string) string {
	return s.prefix + key
}

func (s *SecretManagerStore) secretName(key string) string {
	return "projects/" + s.projectID + "/secrets/" + s.secretID(key)
}
