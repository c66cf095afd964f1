//go:build windows

package fileutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// SecureWriteFile writes data to a file and restricts access to the current
// user via a DACL. If the DACL cannot be applied the file is removed rather
// than left readable by other accounts.
func SecureWriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	if err := restrictToOwner(path); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// SecureMkdirAll creates a directory tree and restricts the leaf directory
// to the current user.
func SecureMkdirAll(path string) error {
	if err := os.MkdirAll(path, 0700); err != nil {
		return err
	}
	return restrictToOwner(path)
}

// SecureOpenFile opens a file for writing and restricts access to the
// current user.
func SecureOpenFile(path string, flag int) (*os.File, error) {
	f, err := os.OpenFile(path, flag, 0600)
	if err != nil {
		return nil, err
	}
	if err := restrictToOwner(path); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// restrictToOwner replaces the object's DACL with a single protected entry
// granting GENERIC_ALL to the current user. PROTECTED_DACL stops ACE
// inheritance from the parent directory.
func restrictToOwner(path string) error {
	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		return fmt.Errorf("open process token: %w", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		return fmt.Errorf("get token user: %w", err)
	}

	ea := windows.EXPLICIT_ACCESS{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       windows.NO_INHERITANCE,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}

	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{ea}, nil)
	if err != nil {
		return fmt.Errorf("build ACL: %w", err)
	}

	return windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil,
		nil,
		acl,
		nil,
	)
}
