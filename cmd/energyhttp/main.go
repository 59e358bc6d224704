// Command energyhttp serves the /energy CSV query surface over an
// already-populated circular datalog file. It is a thin demonstration of
// the store's read path, not a deployment-ready service: there is no
// auth, no TLS, and no integrator running alongside it.
package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"

	"github.com/auramon-energy/datalog"
	"github.com/auramon-energy/datalog/internal/logging"
)

var (
	filePath = flag.String("file", "", "path to the circular datalog file")
	addr     = flag.String("addr", ":8080", "address to listen on")
	interval = flag.Uint32("interval", 5, "seconds between records, must match the file's own interval")
)

func main() {
	flag.Parse()
	if *filePath == "" {
		fmt.Println("energyhttp: --file is required")
		return
	}

	logger := logging.NewDefaultLogger(logging.LevelInfo)
	store, err := datalog.Open(*filePath, datalog.NewOptions(
		datalog.WithInterval(*interval),
		datalog.WithLogger(logger),
	))
	if err != nil {
		logger.Fatalf("%sopen failed: %v", logging.NSHTTP, err)
		return
	}
	defer store.Close()

	r := gin.Default()
	r.GET("/energy", energyHandler(store))
	if err := r.Run(*addr); err != nil {
		logger.Fatalf("%sserve failed: %v", logging.NSHTTP, err)
	}
}

func energyHandler(store *datalog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, err1 := strconv.ParseUint(c.Query("start"), 10, 32)
		end, err2 := strconv.ParseUint(c.Query("end"), 10, 32)
		interval, err3 := strconv.ParseUint(c.Query("interval"), 10, 32)
		if err1 != nil || err2 != nil || err3 != nil {
			c.String(http.StatusBadRequest, "start, end and interval query params are required integers")
			return
		}

		steps, err := store.QueryRange(uint32(start), uint32(end), uint32(interval))
		if err != nil {
			switch {
			case err == datalog.ErrInvalidRange:
				c.String(http.StatusBadRequest, err.Error())
			case err == datalog.ErrMutexTimeout:
				c.String(http.StatusRequestTimeout, err.Error())
			default:
				c.String(http.StatusInternalServerError, err.Error())
			}
			return
		}

		c.Header("Content-Type", "text/csv")
		c.String(http.StatusOK, "ts,device,mean_voltage,real_power_w,apparent_va,energy_wh,power_factor\n")
		for _, step := range steps {
			if step.Skipped {
				continue
			}
			for i, d := range step.Devices {
				c.Writer.WriteString(fmt.Sprintf("%d,%d,%.4f,%.4f,%.4f,%.4f,%.4f\n",
					step.Ts, i, d.MeanVoltage, d.RealPowerW, d.ApparentVA, d.EnergyWh, d.PowerFactor))
			}
		}
	}
}
