/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientEmptyServer(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNewClientConnectTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := NewClient(ctx, Config{Server: "tcp://127.0.0.1:1", ClientID: "test"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewTLSConfig(t *testing.T) {
	tlsConfig, err := newTLSConfig("", "", "")
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)

	_, err = newTLSConfig("/not/exist/ca.pem", "", "")
	assert.Error(t, err)

	dir, err := afero.TempDir(afero.NewOsFs(), "", "mqtt")
	require.NoError(t, err)
	defer afero.NewOsFs().RemoveAll(dir)
	caFile := dir + "/ca.pem"
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), caFile, []byte("not a certificate"), 0644))
	tlsConfig, err = newTLSConfig(caFile, "", "")
	require.NoError(t, err)
	assert.NotNil(t, tlsConfig.RootCAs)
	assert.Empty(t, tlsConfig.Certificates)

	_, err = NewClient(context.Background(), Config{Server: "tcp://127.0.0.1:1", CertFile: caFile, CertKeyFile: caFile})
	assert.Error(t, err)
}
