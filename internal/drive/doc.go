// Package drive is a thin facade over the Google Drive v3 API.
//
// It covers what publishing a build artifact needs: finding or creating a
// folder by name, finding a file by name inside a folder, and uploading a
// file or replacing its content in place so that existing share links keep
// working. Names are matched exactly and trashed entries are ignored.
//
// The client is built from an already authorized *http.Client:
//
//	httpClient, err := authenticator.Authorize(ctx)
//	if err != nil {
//	    return err
//	}
//	client, err := drive.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//	folderID, err := client.FindOrCreateFolder(ctx, "shared-app")
//	if err != nil {
//	    return err
//	}
//	result, err := client.UploadOrReplace(ctx, folderID, "androidapp.apk",
//	    "application/vnd.android.package-archive", f)
package drive
