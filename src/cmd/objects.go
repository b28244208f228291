package main

import (
	"fmt"
	"strings"

	cfg "feedserv/src/configuration"
	"feedserv/src/logger"
	"feedserv/src/storage"

	"github.com/spf13/cobra"
)

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Inspects and removes uploaded objects through the S3-compatible API",
}

var objectsLsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "Lists CDN URLs of uploaded objects",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s3, err := objectsClient()
		if err != nil {
			return err
		}
		exts, err := cmd.Flags().GetStringSlice("ext")
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		urls, err := s3.ListObjects(cmd.Context(), prefix, exts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(urls, "\n"))
		return nil
	},
}

var objectsRmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Deletes objects, e.g. the leftovers of a failed batch upload",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s3, err := objectsClient()
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := s3.DeleteFile(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
		}
		return nil
	},
}

func init() {
	objectsLsCmd.Flags().StringSlice("ext", nil, "only list keys with these extensions")
	objectsCmd.AddCommand(objectsLsCmd, objectsRmCmd)
}

func objectsClient() (*storage.MinioS3Client, error) {
	config, err := cfg.ParseProperties()
	if err != nil {
		return nil, err
	}
	if config.B2.AccountID == "" || config.B2.ApplicationKey == "" || config.B2.BucketName == "" {
		return nil, fmt.Errorf("objects commands need B2_ACCOUNT_ID, B2_APPLICATION_KEY and B2_BUCKET_NAME")
	}
	return newS3Client(config, logger.New(config.LogLevel, config.LogFormat))
}
