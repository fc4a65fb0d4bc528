// Package files locates order exports on disk.
//
// Discovery lists the CSV and XLSX exports in a directory or matching a glob
// pattern, oldest first, and Resolve turns a directory or pattern into the
// most recently modified export.
//
// Example usage:
//
//	path, err := files.NewDiscovery().Resolve("downloads")
//	if err != nil {
//	    return err
//	}
//	data, err := os.ReadFile(path)
package files
