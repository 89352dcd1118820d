package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Config содержит настройки для S3
type S3Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	BucketName string
	Prefix     string
}

// S3Store хранит файлы в бакете S3 (или совместимом хранилище)
type S3Store struct {
	uploader s3manageriface.UploaderAPI
	client   s3iface.S3API
	bucket   string
	prefix   string
}

// NewS3Store создает хранилище поверх новой AWS сессии
func NewS3Store(config *S3Config) (*S3Store, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
	}

	// Если указан endpoint, добавляем его
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AWS сессии: %w", err)
	}

	return NewS3StoreWithClients(s3manager.NewUploader(sess), s3.New(sess), config.BucketName, config.Prefix), nil
}

// NewS3StoreWithClients создает хранилище с готовыми клиентами S3
func NewS3StoreWithClients(uploader s3manageriface.UploaderAPI, client s3iface.S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		uploader: uploader,
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
	}
}

// Put загружает файл в бакет
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("ошибка загрузки файла %s в S3: %w", name, err)
	}
	return nil
}

// Get скачивает файл; отсутствие объекта возвращает ok == false
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ошибка получения файла %s из S3: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения файла %s из S3: %w", name, err)
	}
	return data, true, nil
}

// Delete удаляет файл из бакета
func (s *S3Store) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления файла %s из S3: %w", name, err)
	}
	return nil
}

// List скачивает все файлы с префиксом хранилища
func (s *S3Store) List(ctx context.Context) ([]File, error) {
	var names []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix)
			if name != "" {
				names = append(names, name)
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов из S3: %w", err)
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		data, ok, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		// Объект мог быть удален между листингом и чтением
		if ok {
			files = append(files, File{Name: name, Data: data})
		}
	}
	return files, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
