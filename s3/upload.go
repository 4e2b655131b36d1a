package s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

func newUploader(f Flags) (*s3manager.Uploader, error) {
	if f.URL != "" && !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
		f.URL = "http://" + f.URL
	}

	if f.Region == "" {
		f.Region = "eu-central-1"
	}

	cfg := &aws.Config{
		Region: aws.String(f.Region),
	}

	if f.AccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(
			f.AccessKey,
			f.SecretKey,
			f.SessionToken,
		)
	}

	if f.URL != "" {
		cfg.Endpoint = &f.URL
	}

	if f.PathStyle {
		cfg.S3ForcePathStyle = &f.PathStyle
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	return s3manager.NewUploader(sess), nil
}

// Upload puts files into bucket under prefix and returns their locations.
func Upload(ctx context.Context, f Flags, files []string) ([]string, error) {
	up, err := newUploader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 session: %w", err)
	}

	locations := make([]string, 0, len(files))

	for _, name := range files {
		loc, err := uploadFile(ctx, up, f, name)
		if err != nil {
			return locations, err
		}

		locations = append(locations, loc)
	}

	return locations, nil
}

func uploadFile(ctx context.Context, up *s3manager.Uploader, f Flags, name string) (string, error) {
	file, err := os.Open(name) //nolint:gosec // File name is produced by report writer.
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}

	defer func() {
		_ = file.Close()
	}()

	res, err := up.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(f.Bucket),
		Key:         aws.String(path.Join(f.Prefix, filepath.Base(name))),
		Body:        file,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return res.Location, nil
}
