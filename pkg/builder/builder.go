package builder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/foomo/objectstore/pkg/config"
	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	gcsScope            = "https://www.googleapis.com/auth/devstorage.read_write"
	azureEmulatorHost   = "127.0.0.1:10000"
	azureEmulatorScheme = "http"
)

type (
	// Builder resolves a root location into a backend store
	Builder struct {
		l             *zap.Logger
		root          string
		options       config.Options
		prefix        *path.Path
		pathAsPrefix  bool
		clientOptions config.ClientOptions
		httpClient    *http.Client
		lookupEnv     config.LookupEnvFunc
	}
	Option func(*Builder)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithOptions sets the backend option map
func WithOptions(v config.Options) Option {
	return func(o *Builder) {
		o.options = v
	}
}

// WithPrefix overrides the scope prefix taken from the url path
func WithPrefix(v path.Path) Option {
	return func(o *Builder) {
		o.prefix = &v
	}
}

// WithPathAsPrefix controls whether the url path becomes the scope prefix
func WithPathAsPrefix(v bool) Option {
	return func(o *Builder) {
		o.pathAsPrefix = v
	}
}

func WithClientOptions(v config.ClientOptions) Option {
	return func(o *Builder) {
		o.clientOptions = v
	}
}

// WithHTTPClient sets the client used by all SDKs, overriding client options
func WithHTTPClient(v *http.Client) Option {
	return func(o *Builder) {
		o.httpClient = v
	}
}

func WithLookupEnv(v config.LookupEnvFunc) Option {
	return func(o *Builder) {
		o.lookupEnv = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, root string, opts ...Option) *Builder {
	inst := &Builder{
		l:            l.Named("builder"),
		root:         root,
		pathAsPrefix: true,
		lookupEnv:    os.LookupEnv,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Build opens the backend store for the root location. The returned store
// is not scoped; see Open for the scoped variant.
func (b *Builder) Build(ctx context.Context) (objectstore.Store, *StorageURL, error) {
	u, err := ParseStorageURL(b.root)
	if err != nil {
		return nil, nil, err
	}

	client, err := b.client()
	if err != nil {
		return nil, nil, err
	}

	var bucket *blob.Bucket
	switch u.Kind() {
	case Local:
		bucket, err = b.openLocal()
	case InMemory:
		bucket = memblob.OpenBucket(nil)
	case S3:
		bucket, err = b.openS3(ctx, u, client)
	case Azure:
		bucket, err = b.openAzure(ctx, u, client)
	case GCS:
		bucket, err = b.openGCS(ctx, u, client)
	default:
		err = errors.Wrapf(objectstore.ErrUnresolvableBackend, "no backend for %q", u.String())
	}
	if err != nil {
		return nil, nil, err
	}

	b.l.Debug("opened backend",
		zap.String("url", u.String()),
		zap.String("backend", u.Kind().String()),
		zap.String("bucket", u.Bucket()),
		zap.String("prefix", u.Prefix().String()),
	)
	return objectstore.NewBlobStoreFromBucket(b.l, bucket, objectstore.BlobStoreWithBackend(u.Kind().String())), u, nil
}

// Open builds the backend store and scopes it to the prefix
func (b *Builder) Open(ctx context.Context) (*objectstore.PrefixStore, *StorageURL, error) {
	store, u, err := b.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	return objectstore.NewPrefixStore(b.scopePrefix(u), store), u, nil
}

// Open is a shortcut for New(l, root, opts...).Open(ctx)
func Open(ctx context.Context, l *zap.Logger, root string, opts ...Option) (*objectstore.PrefixStore, *StorageURL, error) {
	return New(l, root, opts...).Open(ctx)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (b *Builder) scopePrefix(u *StorageURL) path.Path {
	switch {
	case b.prefix != nil:
		return *b.prefix
	case b.pathAsPrefix:
		return u.Prefix()
	default:
		return path.Path{}
	}
}

func (b *Builder) client() (*http.Client, error) {
	if b.httpClient != nil {
		return b.httpClient, nil
	}
	return b.clientOptions.HTTPClient()
}

func (b *Builder) resolveOptions() []config.ResolveOption {
	return []config.ResolveOption{config.WithLookupEnv(b.lookupEnv)}
}

// openLocal roots the bucket at the filesystem root, the url path is the prefix
func (b *Builder) openLocal() (*blob.Bucket, error) {
	bucket, err := fileblob.OpenBucket("/", &fileblob.Options{NoTempDir: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open local bucket")
	}
	return bucket, nil
}

func (b *Builder) openS3(ctx context.Context, u *StorageURL, client *http.Client) (*blob.Bucket, error) {
	options := b.options
	if region := u.Region(); region != "" {
		options = withDefault(options, "region", region)
	}
	cfg, err := config.ResolveS3(u.Bucket(), options, b.resolveOptions()...)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(cfg.Endpoint, "http://") && !cfg.AllowHTTP {
		return nil, errors.Wrapf(objectstore.ErrConfiguration, "http endpoint %q requires allow_http", cfg.Endpoint)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(client),
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.HasStaticCredentials() {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	if cfg.MetadataEndpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithEC2IMDSEndpoint(cfg.MetadataEndpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = !cfg.VirtualHostedStyle
	})

	bucket, err := s3blob.OpenBucket(ctx, s3Client, cfg.Bucket, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open s3 bucket %q", cfg.Bucket)
	}
	return bucket, nil
}

func (b *Builder) openAzure(ctx context.Context, u *StorageURL, client *http.Client) (*blob.Bucket, error) {
	if u.Bucket() == "" {
		return nil, errors.Wrap(objectstore.ErrConfiguration, "missing configuration azure container must be specified")
	}
	cfg, err := config.ResolveAzure(u.Account(), b.options, b.resolveOptions()...)
	if err != nil {
		return nil, err
	}

	containerURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s", cfg.AccountName, u.Bucket())
	if cfg.UseEmulator {
		containerURL = fmt.Sprintf("%s://%s/%s/%s", azureEmulatorScheme, azureEmulatorHost, cfg.AccountName, u.Bucket())
	}

	clientOptions := azcore.ClientOptions{
		Transport: client,
	}
	if cfg.UseEmulator || cfg.AllowHTTP {
		clientOptions.InsecureAllowCredentialWithHTTP = true
	}
	opts := &container.ClientOptions{ClientOptions: clientOptions}

	var containerClient *container.Client
	switch cfg.Credential {
	case config.AzureSharedKey:
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, errors.Wrapf(objectstore.ErrConfiguration, "invalid azure account key: %s", err)
		}
		containerClient, err = container.NewClientWithSharedKeyCredential(containerURL, cred, opts)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create azure container client")
		}
	case config.AzureSAS:
		containerClient, err = container.NewClientWithNoCredential(containerURL+"?"+cfg.SASQuery(), opts)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create azure container client")
		}
	case config.AzureClientSecret:
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: clientOptions},
		)
		if err != nil {
			return nil, errors.Wrapf(objectstore.ErrConfiguration, "invalid azure client secret: %s", err)
		}
		containerClient, err = container.NewClient(containerURL, cred, opts)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create azure container client")
		}
	default:
		return nil, config.ErrMissingCredential
	}

	bucket, err := azureblob.OpenBucket(ctx, containerClient, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open azure container %q", u.Bucket())
	}
	return bucket, nil
}

func (b *Builder) openGCS(ctx context.Context, u *StorageURL, client *http.Client) (*blob.Bucket, error) {
	if u.Bucket() == "" {
		return nil, errors.Wrap(objectstore.ErrConfiguration, "missing configuration google bucket must be specified")
	}
	cfg, err := config.ResolveGoogle(b.options, b.resolveOptions()...)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfg.ServiceAccountPath)
	if err != nil {
		return nil, errors.Wrapf(objectstore.ErrConfiguration, "failed to read service account %q: %s", cfg.ServiceAccountPath, err)
	}
	// token requests go through the shared client as well
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, client)
	creds, err := google.CredentialsFromJSON(tokenCtx, data, gcsScope)
	if err != nil {
		return nil, errors.Wrapf(objectstore.ErrConfiguration, "invalid service account %q: %s", cfg.ServiceAccountPath, err)
	}

	transport := client.Transport
	if transport == nil {
		transport = gcp.DefaultTransport()
	}
	gcsClient, err := gcp.NewHTTPClient(transport, gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcs client")
	}

	bucket, err := gcsblob.OpenBucket(ctx, gcsClient, u.Bucket(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open gcs bucket %q", u.Bucket())
	}
	return bucket, nil
}

// withDefault returns a copy of options with key set unless an alias is present
func withDefault(options config.Options, key, value string) config.Options {
	ret := make(config.Options, len(options)+1)
	for k, v := range options {
		ret[k] = v
	}
	for k := range options {
		if strings.EqualFold(k, key) || strings.EqualFold(k, "aws_"+key) {
			return ret
		}
	}
	ret[key] = value
	return ret
}
