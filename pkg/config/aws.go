package config

type s3Key int

const (
	s3AccessKeyID s3Key = iota
	s3SecretAccessKey
	s3Region
	s3DefaultRegion
	s3Bucket
	s3Endpoint
	s3Token
	s3VirtualHostedStyleRequest
	s3MetadataEndpoint
	s3Profile
	s3AllowHTTP
)

var s3Aliases = aliasTable[s3Key]{
	{"aws_access_key_id", s3AccessKeyID},
	{"access_key_id", s3AccessKeyID},
	{"aws_secret_access_key", s3SecretAccessKey},
	{"secret_access_key", s3SecretAccessKey},
	{"aws_default_region", s3DefaultRegion},
	{"default_region", s3DefaultRegion},
	{"aws_region", s3Region},
	{"region", s3Region},
	{"aws_bucket", s3Bucket},
	{"bucket", s3Bucket},
	{"aws_endpoint_url", s3Endpoint},
	{"aws_endpoint", s3Endpoint},
	{"endpoint_url", s3Endpoint},
	{"endpoint", s3Endpoint},
	{"aws_session_token", s3Token},
	{"session_token", s3Token},
	{"aws_virtual_hosted_style_request", s3VirtualHostedStyleRequest},
	{"virtual_hosted_style_request", s3VirtualHostedStyleRequest},
	{"aws_profile", s3Profile},
	{"profile", s3Profile},
	{"aws_metadata_endpoint", s3MetadataEndpoint},
	{"metadata_endpoint", s3MetadataEndpoint},
	{"aws_allow_http", s3AllowHTTP},
	{"allow_http", s3AllowHTTP},
}

// S3 is the resolved configuration of an S3 compatible backend
type S3 struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Region is required
	Region string
	// Bucket is required
	Bucket   string
	Endpoint string
	// VirtualHostedStyle selects bucket.host addressing instead of host/bucket
	VirtualHostedStyle bool
	MetadataEndpoint   string
	Profile            string
	AllowHTTP          bool
}

// HasStaticCredentials is true when both key id and secret are set
func (c S3) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// ResolveS3 resolves the S3 configuration. The bucket parsed from the URL
// takes precedence over the bucket option.
func ResolveS3(bucket string, options Options, opts ...ResolveOption) (S3, error) {
	r := newResolver(s3Aliases, options, opts...)

	region, ok := r.get(s3Region)
	if !ok {
		region, ok = r.get(s3DefaultRegion)
	}
	if !ok || region == "" {
		return S3{}, requiredError("aws region must be specified")
	}

	if bucket == "" {
		bucket, _ = r.get(s3Bucket)
	}
	if bucket == "" {
		return S3{}, requiredError("aws bucket must be specified")
	}

	c := S3{
		Region: region,
		Bucket: bucket,
	}
	c.Endpoint, _ = r.get(s3Endpoint)
	c.SessionToken, _ = r.get(s3Token)
	c.MetadataEndpoint, _ = r.get(s3MetadataEndpoint)
	c.Profile, _ = r.get(s3Profile)
	c.VirtualHostedStyle, _ = r.truthy(s3VirtualHostedStyleRequest)
	c.AllowHTTP, _ = r.truthy(s3AllowHTTP)

	keyID, okID := r.get(s3AccessKeyID)
	secret, okSecret := r.get(s3SecretAccessKey)
	if okID && okSecret {
		c.AccessKeyID = keyID
		c.SecretAccessKey = secret
	}
	return c, nil
}
