// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store adapts the discovery service's read/write needs onto
// Google Cloud Firestore, following the same repository idiom as the
// teacher's internal/infrastructure/database repositories (a thin
// struct wrapping a client, one method per operation, errors wrapped
// with fmt.Errorf and logged through pkg/logger) with the SQL driver
// swapped for a document-store client.
package store

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/certenio/pending-discovery/pkg/logger"
)

// Store is the inbox store adapter: read users+identities, read the
// current inbox, atomically apply (adds, removes, computed-state).
type Store struct {
	client   *firestore.Client
	usersCol string
}

// New connects to Firestore using the given project, optional
// credentials file (empty uses ambient identity), and optional
// emulator host override.
func New(ctx context.Context, projectID, credentialsPath, emulatorHost, usersCollection string) (*Store, error) {
	if emulatorHost != "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", emulatorHost)
		logger.Logger.Info("store: using firestore emulator", "host", emulatorHost)
	}

	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	conf := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firestore client: %w", err)
	}

	return &Store{client: client, usersCol: usersCollection}, nil
}

// Close releases the underlying Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}
