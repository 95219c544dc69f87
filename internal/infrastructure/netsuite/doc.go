// Package netsuite is the adapter to the upstream ERP's REST surfaces:
// the SuiteQL query endpoint and the file-reading RESTlet. It implements
// erpsync.RemoteQuerier and erpsync.ExportFiles.
//
// Every HTTP call goes through one retry loop (see Client.do) that treats
// rate limiting, concurrency limits and 5xx responses as transient and
// retries them without an attempt limit. The caller's context is the only
// backstop.
package netsuite
