package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"
)

const (
	azureTimeout   = 60 * time.Second
	snapshotBlock  = 4 * 1024 * 1024
	jsonType       = "application/json"
	uploadParallel = 4
)

// AzureStorage keeps problem snapshots as blobs in one container
type AzureStorage struct {
	client    *azblob.Client
	container string
}

// Ensure AzureStorage implements StorageInterface
var _ StorageInterface = (*AzureStorage)(nil)

// NewAzureStorage connects to the account with the default Azure credential
// chain and creates the container on first use
func NewAzureStorage(accountName, containerName string) (*AzureStorage, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}
	if containerName == "" {
		return nil, fmt.Errorf("storage container name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azblob.NewClient(fmt.Sprintf("https://%s.blob.core.windows.net/", accountName), credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	s := &AzureStorage{client: client, container: containerName}
	ctx, cancel := context.WithTimeout(context.Background(), azureTimeout)
	defer cancel()

	if _, err := s.client.CreateContainer(ctx, s.container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("failed to create container %s: %w", s.container, err)
		}
	} else {
		logrus.Infof("Created snapshot container %s", s.container)
	}

	return s, nil
}

// Store uploads data as a block blob. JSON documents are tagged with their
// content type so a published snapshot can be served straight from the
// container.
func (s *AzureStorage) Store(filename string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), azureTimeout)
	defer cancel()

	opts := &azblob.UploadBufferOptions{
		BlockSize:   snapshotBlock,
		Concurrency: uploadParallel,
	}
	if strings.EqualFold(path.Ext(filename), ".json") {
		contentType := jsonType
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, filename, data, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	logrus.Debugf("Uploaded %s to container %s (%d bytes)", filename, s.container, len(data))
	return nil
}

// Retrieve downloads a blob; a missing blob is reported as ErrNotFound
func (s *AzureStorage) Retrieve(filename string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), azureTimeout)
	defer cancel()

	response, err := s.client.DownloadStream(ctx, s.container, filename, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to download %s: %w", filename, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// List returns the blob names starting with prefix, sorted
func (s *AzureStorage) List(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), azureTimeout)
	defer cancel()

	var names []string
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes a blob; deleting a missing blob is not an error
func (s *AzureStorage) Delete(filename string) error {
	ctx, cancel := context.WithTimeout(context.Background(), azureTimeout)
	defer cancel()

	if _, err := s.client.DeleteBlob(ctx, s.container, filename, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}

	logrus.Debugf("Deleted %s from container %s", filename, s.container)
	return nil
}
