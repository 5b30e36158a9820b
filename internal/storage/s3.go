package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

// gcmMagic marks source documents stored in the encrypted-at-rest container:
// magic(8) + salt(16) + nonce(12) + ciphertext||tag(16).
const gcmMagic = "GCM3NCR0"

// Options configures the S3 client.
type Options struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Client wraps the AWS S3 client for source download and evidence upload.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Client creates a new S3 client. Static credentials are used when both
// key fields are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, opts Options) (*S3Client, error) {
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:   cli,
		uploader: manager.NewUploader(cli),
		bucket:   opts.Bucket,
	}, nil
}

// DownloadToTemp fetches s3://bucket/key to a temp .pdf file, decrypting the
// GCM container when a password is set and the object carries the magic.
func (s *S3Client) DownloadToTemp(ctx context.Context, s3url, password string) (string, error) {
	bucket, key, err := splitURL(s3url)
	if err != nil {
		return "", err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", fmt.Errorf("failed to download from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read S3 object: %w", err)
	}

	if password != "" && len(data) >= 8 && bytes.Equal(data[:8], []byte(gcmMagic)) {
		data, err = decryptGCM(data, password)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt %s: %w", key, err)
		}
		log.Debug().Str("key", key).Int("size", len(data)).Msg("decrypted source document")
	}

	f, err := os.CreateTemp("", "s3pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	log.Info().Str("bucket", bucket).Str("key", key).Str("file", filepath.Base(f.Name())).Msg("downloaded s3 pdf to temp")
	return f.Name(), nil
}

// UploadEvidence uploads a local evidence image under prefix and returns the
// object key.
func (s *S3Client) UploadEvidence(ctx context.Context, localPath, prefix string) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("no evidence bucket configured")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open evidence image: %w", err)
	}
	defer f.Close()

	key := strings.TrimSuffix(prefix, "/") + "/" + filepath.Base(localPath)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}

	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("uploaded evidence image")
	return key, nil
}

func splitURL(s3url string) (bucket, key string, err error) {
	path := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 {
		return "", "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	return path[:slash], path[slash+1:], nil
}

func decryptGCM(data []byte, password string) ([]byte, error) {
	if len(data) < 8+16+12+16 {
		return nil, fmt.Errorf("GCM data too short: %d bytes", len(data))
	}

	salt := data[8:24]
	nonce := data[24:36]
	encryptedWithTag := data[36:]

	key := pbkdf2.Key([]byte(password), salt, 100000, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, encryptedWithTag, nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}
