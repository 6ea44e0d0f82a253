package fileHandlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

var mutex sync.Mutex

// HandleAvatarPicture reads the uploaded picture from the multipart
// form, square-crops and converts it to a 256x256 webp with ffmpeg and
// stores it under ./public/avatars using the content hash as filename.
// Returns the filename to be served from /cdn/avatars/.
func HandleAvatarPicture(r *http.Request) (string, error) {
	picFormFile, _, err := r.FormFile("picture")
	if err != nil {
		return "", err
	}
	defer func() {
		err := picFormFile.Close()
		if err != nil {
			fmt.Println(err)
		}
	}()

	inputBytes, err := io.ReadAll(picFormFile)
	if err != nil {
		return "", err
	}

	cmd := exec.Command(
		"ffmpeg",
		"-i", "pipe:0",
		"-vf", "crop=min(iw\\,ih):min(iw\\,ih):(iw-min(iw\\,ih))/2:(ih-min(iw\\,ih))/2,scale=256:256",
		"-vframes", "1",
		"-c:v", "libwebp",
		"-quality", "50",
		"-preset", "default",
		"-f", "webp",
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", err
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err = cmd.Start()
	if err != nil {
		return "", err
	}

	_, err = stdin.Write(inputBytes)
	if err != nil {
		return "", err
	}

	err = stdin.Close()
	if err != nil {
		return "", err
	}

	err = cmd.Wait()
	if err != nil {
		return "", err
	}

	resultBytes := stdout.Bytes()

	hash := sha256.Sum256(resultBytes)

	fileName := hex.EncodeToString(hash[:]) + ".webp"
	folderPath := filepath.Join(".", "public", "avatars")
	fullPath := filepath.Join(folderPath, fileName)

	mutex.Lock()
	defer mutex.Unlock()

	err = os.MkdirAll(folderPath, os.ModePerm)
	if err != nil {
		return "", err
	}

	// identical content already stored under the same hash
	_, err = os.Stat(fullPath)
	if os.IsNotExist(err) {
		err = os.WriteFile(fullPath, resultBytes, 0644)
		if err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	return fileName, nil
}
