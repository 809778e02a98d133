// Command listusers serves the list-users function.
package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/basewarphq/bwobs/backend/internal/handlers"
	"github.com/basewarphq/bwobs/backend/internal/userstore"
	"github.com/basewarphq/bwobs/bwfn"
)

func main() {
	bwfn.NewApp[handlers.Env](handlers.NewListUsers,
		bwfn.WithAWSClient(func(cfg aws.Config) userstore.ScanAPI {
			return dynamodb.NewFromConfig(cfg)
		}),
		bwfn.WithFx(handlers.Module),
	).Run()
}
