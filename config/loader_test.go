package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("load should parse a full yaml config", t, func() {
		file := filepath.Join(t.TempDir(), "engine.yaml")
		content := `
host: 0.0.0.0
port: 27777
mysql:
  dataSource: user:pass@tcp(127.0.0.1:3306)/jobs?charset=utf8mb4&parseTime=true
workers: 4
pollSeconds: 2
promoteSeconds: 10
heartbeatSeconds: 60
maxRetries: 5
workerId: worker-a
`
		So(os.WriteFile(file, []byte(content), 0o600), ShouldBeNil)

		c, err := Load(file)
		So(err, ShouldBeNil)
		So(c.Host, ShouldEqual, "0.0.0.0")
		So(c.Port, ShouldEqual, 27777)
		So(c.Mysql.DataSource, ShouldContainSubstring, "tcp(127.0.0.1:3306)")
		So(c.Workers, ShouldEqual, 4)
		So(c.PollSeconds, ShouldEqual, 2)
		So(c.MaxRetries, ShouldEqual, 5)
		So(c.WorkerID, ShouldEqual, "worker-a")
	})

	Convey("load should fail on a missing file", t, func() {
		_, err := Load("/no/such/file.yaml")
		So(err, ShouldNotBeNil)
	})

	Convey("must-load should panic on bad yaml", t, func() {
		file := filepath.Join(t.TempDir(), "bad.yaml")
		So(os.WriteFile(file, []byte("host: [unclosed"), 0o600), ShouldBeNil)
		So(func() { MustLoad(file) }, ShouldPanic)
	})
}
