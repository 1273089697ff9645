// Package static отдаёт веб-интерфейс: встроенный в бинарь или из каталога на диске.
package static

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed files
var files embed.FS

// Handler возвращает файловый сервер. при dir != "" отдаём с диска (удобно при правке фронта).
func Handler(dir string) http.Handler {
	if d := strings.TrimSpace(dir); d != "" {
		return http.FileServer(http.Dir(d))
	}
	sub, err := fs.Sub(files, "files")
	if err != nil {
		panic(err) // каталог встроен при сборке
	}
	return http.FileServer(http.FS(sub))
}
