//go:build integration
// +build integration

package proto_test

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/1xyz/coolbeans-client/beanstalkd/proto"
	"github.com/beanstalkd/go-beanstalk"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	putTTR         = 10 * time.Second
	reserveTimeout = 2 * time.Second
	charset        = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func serverAddr() string {
	if addr := os.Getenv("BEANSTALKD"); addr != "" {
		return addr
	}
	return proto.DefaultAddr
}

func newConn(t *testing.T) *proto.Conn {
	c, err := proto.Dial(serverAddr(), &proto.Config{
		ConnectTimeout:     5 * time.Second,
		DiscoverMaxJobSize: true,
	})
	if err != nil {
		t.Fatalf("error dial beanstalkd %v", err)
	}
	return c
}

// newRefConn returns a go-beanstalk connection used to cross-check
func newRefConn(t *testing.T) *beanstalk.Conn {
	c, err := beanstalk.Dial("tcp", serverAddr())
	if err != nil {
		t.Fatalf("error dial beanstalkd %v", err)
	}
	return c
}

func randStr(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}

func TestIntegration_Put_Reserve_Delete(t *testing.T) {
	Convey("Given a beanstalk service", t, func() {
		tubeName := randStr(8)
		c := newConn(t)
		defer c.Quit()

		_, err := c.Use(tubeName)
		So(err, ShouldBeNil)

		Convey("a job put by this client is reserved by the reference client", func() {
			res, err := c.Put([]byte("garbanzo\r\nbeans"), 1, 0, putTTR)
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, core.StatusInserted)

			ref := newRefConn(t)
			defer ref.Close()
			tubes := beanstalk.NewTubeSet(ref, tubeName)
			id, body, err := tubes.Reserve(reserveTimeout)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, uint64(res.ID))
			So(string(body), ShouldEqual, "garbanzo\r\nbeans")
			So(ref.Delete(id), ShouldBeNil)
		})

		Convey("a job put by the reference client is reserved by this client", func() {
			ref := newRefConn(t)
			defer ref.Close()
			id, err := (&beanstalk.Tube{Conn: ref, Name: tubeName}).Put([]byte("chickpeas"), 1, 0, putTTR)
			So(err, ShouldBeNil)

			n, err := c.Watch(tubeName)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, uint64(2))

			r, err := c.ReserveWithTimeout(reserveTimeout)
			So(err, ShouldBeNil)
			So(r.Job.ID, ShouldEqual, core.JobID(id))
			So(string(r.Job.Body), ShouldEqual, "chickpeas")

			js, err := c.StatsJob(r.Job.ID)
			So(err, ShouldBeNil)
			So(js["state"], ShouldEqual, "reserved")

			So(c.Touch(r.Job.ID), ShouldBeNil)
			So(c.Delete(r.Job.ID), ShouldBeNil)

			err = c.Delete(r.Job.ID)
			So(errors.Is(err, core.ErrNotFound), ShouldBeTrue)
			So(c.State(), ShouldEqual, proto.Connected)
		})

		Convey("a reserve with a zero timeout on an empty tube times out", func() {
			_, err := c.Watch(tubeName)
			So(err, ShouldBeNil)
			_, err = c.Ignore(core.DefaultTubeName)
			So(err, ShouldBeNil)

			r, err := c.ReserveWithTimeout(0)
			So(err, ShouldBeNil)
			So(r.Status, ShouldEqual, core.StatusTimedOut)
		})
	})
}

func TestIntegration_Bury_Kick(t *testing.T) {
	Convey("Given a buried job", t, func() {
		tubeName := randStr(8)
		c := newConn(t)
		defer c.Quit()

		_, err := c.Use(tubeName)
		So(err, ShouldBeNil)
		_, err = c.Watch(tubeName)
		So(err, ShouldBeNil)

		_, err = c.Put([]byte("lentils"), 5, 0, putTTR)
		So(err, ShouldBeNil)
		r, err := c.ReserveWithTimeout(reserveTimeout)
		So(err, ShouldBeNil)
		So(c.Bury(r.Job.ID, 5), ShouldBeNil)

		Convey("peek-buried finds it and kick moves it to ready", func() {
			j, err := c.PeekBuried()
			So(err, ShouldBeNil)
			So(j.ID, ShouldEqual, r.Job.ID)

			n, err := c.Kick(10)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, uint64(1))

			ts, err := c.StatsTube(tubeName)
			So(err, ShouldBeNil)
			tube, err := ts.Tube()
			So(err, ShouldBeNil)
			So(tube.CurrentJobsReady, ShouldEqual, uint64(1))

			So(c.Delete(r.Job.ID), ShouldBeNil)
		})
	})
}

func TestIntegration_Stats(t *testing.T) {
	Convey("Given a beanstalk service", t, func() {
		c := newConn(t)
		defer c.Quit()

		Convey("stats reports a max job size that Dial discovered", func() {
			s, err := c.Stats()
			So(err, ShouldBeNil)
			ss, err := s.Server()
			So(err, ShouldBeNil)
			So(ss.MaxJobSize, ShouldBeGreaterThan, 0)
			So(c.MaxJobSize(), ShouldEqual, int(ss.MaxJobSize))
		})

		Convey("list-tubes agrees with the reference client", func() {
			ref := newRefConn(t)
			defer ref.Close()
			expected, err := ref.ListTubes()
			So(err, ShouldBeNil)

			tubes, err := c.ListTubes()
			So(err, ShouldBeNil)
			So(tubes, ShouldContain, core.DefaultTubeName)
			So(len(tubes), ShouldBeGreaterThanOrEqualTo, len(expected)-1)
		})
	})
}
