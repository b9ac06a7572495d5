package s3

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/transfer/walk"
)

// List implements walk.Lister over ListObjectsV2 with "/" as the hierarchy
// delimiter: common prefixes become containers, objects become leaves.
// Pagination is followed until the listing for the key is complete.
func (b *Backend) List(ctx context.Context, key string) ([]walk.Entry, error) {
	prefix := ""
	if key != "" {
		prefix = key + "/"
	}

	var entries []walk.Entry
	var continuationToken *string

	for {
		output, err := b.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, err
		}

		for _, commonPrefix := range output.CommonPrefixes {
			entries = append(entries, walk.Entry{
				Key: strings.TrimSuffix(aws.ToString(commonPrefix.Prefix), "/"),
				Dir: true,
			})
		}
		for _, object := range output.Contents {
			objectKey := aws.ToString(object.Key)
			// ListObjectsV2 can echo the container placeholder itself.
			if objectKey == prefix {
				continue
			}
			entries = append(entries, walk.Entry{Key: objectKey})
		}

		if !aws.ToBool(output.IsTruncated) {
			return entries, nil
		}
		continuationToken = output.NextContinuationToken
	}
}

var _ walk.Lister = (*Backend)(nil)
